package host

import (
	"github.com/dop251/goja"

	sferrors "github.com/rcpklmc/sn0int/pkg/errors"
)

// BindKeyring exposes keyring(namespace) -> [entry], gated by the running
// module's declared Keyring-Access list.
func BindKeyring(rt *goja.Runtime, st *State) {
	rt.Set("keyring", func(namespace string) []map[string]string {
		st.ClearError()
		if st.Metadata == nil || !st.Metadata.CanAccessKeyring(namespace) {
			st.SetError(sferrors.New(sferrors.KeyringDenied, "module has no keyring_access for namespace "+namespace))
			return nil
		}
		if st.Keyring == nil {
			return nil
		}
		entries := st.Keyring.Get(namespace)
		out := make([]map[string]string, len(entries))
		for i, e := range entries {
			out[i] = map[string]string{"key": e.Key, "value": e.Value}
		}
		return out
	})
}
