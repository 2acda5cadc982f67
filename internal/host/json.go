package host

import (
	"encoding/json"
	"io"
	"strings"

	"github.com/dop251/goja"
)

// BindJSON exposes json_decode, json_encode and json_decode_stream.
func BindJSON(rt *goja.Runtime, st *State) {
	rt.Set("json_decode", func(s string) interface{} {
		st.ClearError()
		var v interface{}
		if err := json.Unmarshal([]byte(s), &v); err != nil {
			st.SetError(err)
			return nil
		}
		return v
	})

	rt.Set("json_encode", func(v interface{}) string {
		st.ClearError()
		b, err := json.Marshal(v)
		if err != nil {
			st.SetError(err)
			return ""
		}
		return string(b)
	})

	rt.Set("json_decode_stream", func(s string) []interface{} {
		st.ClearError()
		dec := json.NewDecoder(strings.NewReader(s))
		var out []interface{}
		for {
			var v interface{}
			err := dec.Decode(&v)
			if err == io.EOF {
				break
			}
			if err != nil {
				st.SetError(err)
				return out
			}
			out = append(out, v)
		}
		return out
	})
}
