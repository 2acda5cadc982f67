package host

import (
	"encoding/base64"
	"encoding/hex"
	"net/url"

	"github.com/dop251/goja"
)

// BindEncoding exposes base64_encode/decode, hex/unhex and
// url_encode/decode.
func BindEncoding(rt *goja.Runtime, st *State) {
	rt.Set("base64_encode", func(s string) string {
		st.ClearError()
		return base64.StdEncoding.EncodeToString([]byte(s))
	})
	rt.Set("base64_decode", func(s string) string {
		st.ClearError()
		b, err := base64.StdEncoding.DecodeString(s)
		if err != nil {
			st.SetError(err)
			return ""
		}
		return string(b)
	})
	rt.Set("hex", func(s string) string {
		st.ClearError()
		return hex.EncodeToString([]byte(s))
	})
	rt.Set("unhex", func(s string) string {
		st.ClearError()
		b, err := hex.DecodeString(s)
		if err != nil {
			st.SetError(err)
			return ""
		}
		return string(b)
	})
	rt.Set("url_encode", func(s string) string {
		st.ClearError()
		return url.QueryEscape(s)
	})
	rt.Set("url_decode", func(s string) string {
		st.ClearError()
		out, err := url.QueryUnescape(s)
		if err != nil {
			st.SetError(err)
			return ""
		}
		return out
	})
}
