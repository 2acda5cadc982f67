package host

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"

	"github.com/dop251/goja"
	"golang.org/x/crypto/sha3"
)

// BindHash exposes sha1, sha256, sha3_256, sha3_512 and md5.
func BindHash(rt *goja.Runtime, st *State) {
	rt.Set("sha1", func(s string) string {
		st.ClearError()
		sum := sha1.Sum([]byte(s))
		return hex.EncodeToString(sum[:])
	})
	rt.Set("sha256", func(s string) string {
		st.ClearError()
		sum := sha256.Sum256([]byte(s))
		return hex.EncodeToString(sum[:])
	})
	rt.Set("sha3_256", func(s string) string {
		st.ClearError()
		sum := sha3.Sum256([]byte(s))
		return hex.EncodeToString(sum[:])
	})
	rt.Set("sha3_512", func(s string) string {
		st.ClearError()
		sum := sha3.Sum512([]byte(s))
		return hex.EncodeToString(sum[:])
	})
	rt.Set("md5", func(s string) string {
		st.ClearError()
		sum := md5.Sum([]byte(s))
		return hex.EncodeToString(sum[:])
	})
}
