package host

import (
	"errors"

	"github.com/dop251/goja"
)

// BindControl exposes info/debug/error/status (each emitting one ScriptLog
// event tagged with the running module and seed) and stdin_readline, which
// is only wired to a real reader when the run is marked interactive.
func BindControl(rt *goja.Runtime, st *State) {
	emit := func(level string) func(string) {
		return func(msg string) {
			st.ClearError()
			if st.ScriptLog != nil {
				st.ScriptLog.Event(st.ModuleRef, st.SeedValue, level, msg)
			}
		}
	}
	rt.Set("info", emit("info"))
	rt.Set("debug", emit("debug"))
	rt.Set("error", emit("error"))
	rt.Set("status", emit("status"))

	rt.Set("stdin_readline", func() string {
		st.ClearError()
		if !st.Interactive || st.Stdin == nil {
			st.SetError(errStdinNotInteractive)
			return ""
		}
		line, err := st.Stdin()
		if err != nil {
			st.SetError(err)
			return ""
		}
		return line
	})
}

var errStdinNotInteractive = errors.New("stdin_readline is only available for interactive module runs")
