// Package script evaluates macro bodies as Lua chunks.
//
// A Context is created once per build and shared by every file. Host
// capabilities are registered on it before any file is processed. Globals
// that a macro assigns stay visible to every later macro in the same run,
// including macros in files processed afterwards.
package script

import (
	"errors"
	"fmt"
	"strings"

	lua "github.com/yuin/gopher-lua"
)

const chunkName = "macro"

// Func is a host capability callable from macros. Lua arguments arrive as
// text; a returned error is raised as a Lua error.
type Func func(args []string) (string, error)

type options struct {
	safe bool
}

// Option configures a Context.
type Option func(*options)

// WithSafeLibs opens only the base, table, string and math libraries, so
// macros cannot reach io or os.
func WithSafeLibs() Option {
	return func(o *options) { o.safe = true }
}

// Context owns the interpreter state used to evaluate macros.
type Context struct {
	L *lua.LState
}

// New creates an interpreter context.
func New(opts ...Option) *Context {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	if !o.safe {
		return &Context{L: lua.NewState()}
	}

	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	for _, lib := range []struct {
		name string
		open lua.LGFunction
	}{
		{lua.LoadLibName, lua.OpenPackage},
		{lua.BaseLibName, lua.OpenBase},
		{lua.TabLibName, lua.OpenTable},
		{lua.StringLibName, lua.OpenString},
		{lua.MathLibName, lua.OpenMath},
	} {
		if err := L.CallByParam(lua.P{
			Fn:      L.NewFunction(lib.open),
			NRet:    0,
			Protect: true,
		}, lua.LString(lib.name)); err != nil {
			panic(fmt.Sprintf("script: open %q library: %v", lib.name, err))
		}
	}
	return &Context{L: L}
}

// Close releases the interpreter.
func (c *Context) Close() {
	c.L.Close()
}

// Register binds fn to a global name.
func (c *Context) Register(name string, fn Func) {
	c.L.SetGlobal(name, c.L.NewFunction(func(L *lua.LState) int {
		n := L.GetTop()
		args := make([]string, 0, n)
		for i := 1; i <= n; i++ {
			v := L.Get(i)
			switch v.Type() {
			case lua.LTString, lua.LTNumber, lua.LTBool:
				args = append(args, v.String())
			case lua.LTNil:
				args = append(args, "")
			default:
				L.ArgError(i, "string expected, got "+v.Type().String())
				return 0
			}
		}

		out, err := fn(args)
		if err != nil {
			L.RaiseError("%s: %s", name, err.Error())
			return 0
		}
		L.Push(lua.LString(out))
		return 1
	}))
}

// SetGlobal assigns a string global visible to every later evaluation.
func (c *Context) SetGlobal(name, value string) {
	c.L.SetGlobal(name, lua.LString(value))
}

// GetGlobal returns a global as text and whether it is set.
func (c *Context) GetGlobal(name string) (string, bool) {
	v := c.L.GetGlobal(name)
	if v == lua.LNil {
		return "", false
	}
	return v.String(), true
}

// Eval runs body and returns its result as text. The body may be a bare
// expression ("1 + 1") or a statement chunk ending in return. String
// results are returned as-is and numbers are converted the way Lua's
// tostring does; any other result is an error.
func (c *Context) Eval(body string) (string, error) {
	fn, err := c.L.Load(strings.NewReader("return "+body), chunkName)
	if err != nil {
		fn, err = c.L.Load(strings.NewReader(body), chunkName)
		if err != nil {
			return "", luaError(err)
		}
	}

	c.L.Push(fn)
	if err := c.L.PCall(0, 1, nil); err != nil {
		return "", luaError(err)
	}
	ret := c.L.Get(-1)
	c.L.Pop(1)

	switch v := ret.(type) {
	case lua.LString:
		return string(v), nil
	case lua.LNumber:
		return v.String(), nil
	default:
		return "", fmt.Errorf("macro returned %s, expected a string", ret.Type().String())
	}
}

// luaError drops the Lua stack traceback from interpreter errors so that
// diagnostics stay on one line.
func luaError(err error) error {
	var apiErr *lua.ApiError
	if errors.As(err, &apiErr) && apiErr.Object != nil {
		return errors.New(apiErr.Object.String())
	}
	return err
}
