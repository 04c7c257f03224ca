package expr

import (
	"sort"
	"strings"
)

// Func identifies a builtin function.
type Func int

const (
	FuncSin Func = iota
	FuncCos
	FuncTan
	FuncAtan
	FuncLog
	FuncExp
	FuncAbs
	FuncFloor
	FuncCeil
	FuncClamp
	FuncWrap
	FuncRGBToYCrCb
	FuncYCrCbToRGB
	FuncPerlinBW
	FuncPerlinColor
	FuncImageClip
	FuncImageWrap
	FuncMandelbrot
	FuncRandom
	FuncRandomFunction

	numFuncs
)

type funcInfo struct {
	name  string
	arity int
}

var funcTable = [numFuncs]funcInfo{
	FuncSin:            {"sin", 1},
	FuncCos:            {"cos", 1},
	FuncTan:            {"tan", 1},
	FuncAtan:           {"atan", 1},
	FuncLog:            {"log", 1},
	FuncExp:            {"exp", 1},
	FuncAbs:            {"abs", 1},
	FuncFloor:          {"floor", 1},
	FuncCeil:           {"ceil", 1},
	FuncClamp:          {"clamp", 1},
	FuncWrap:           {"wrap", 1},
	FuncRGBToYCrCb:     {"rgbToYCrCb", 1},
	FuncYCrCbToRGB:     {"yCrCbToRGB", 1},
	FuncPerlinBW:       {"perlinBW", 2},
	FuncPerlinColor:    {"perlinColor", 2},
	FuncImageClip:      {"imageClip", 3},
	FuncImageWrap:      {"imageWrap", 3},
	FuncMandelbrot:     {"mandelbrot", 2},
	FuncRandom:         {"random", 0},
	FuncRandomFunction: {"randomFunction", 0},
}

var funcsByName = func() map[string]Func {
	m := make(map[string]Func, numFuncs)
	for f := Func(0); f < numFuncs; f++ {
		m[funcTable[f].name] = f
	}
	return m
}()

// LookupFunc returns the builtin with the given case-sensitive name.
func LookupFunc(name string) (Func, bool) {
	f, ok := funcsByName[name]
	return f, ok
}

// String returns the function's source name.
func (f Func) String() string {
	if f < 0 || f >= numFuncs {
		return "unknown"
	}
	return funcTable[f].name
}

// Arity returns the number of arguments the function takes.
func (f Func) Arity() int {
	if f < 0 || f >= numFuncs {
		return 0
	}
	return funcTable[f].arity
}

// unaryOp maps single-argument builtins to their tree operator.
func (f Func) unaryOp() (UnaryOp, bool) {
	switch f {
	case FuncSin:
		return OpSin, true
	case FuncCos:
		return OpCos, true
	case FuncTan:
		return OpTan, true
	case FuncAtan:
		return OpAtan, true
	case FuncLog:
		return OpLog, true
	case FuncExp:
		return OpExp, true
	case FuncAbs:
		return OpAbs, true
	case FuncFloor:
		return OpFloor, true
	case FuncCeil:
		return OpCeil, true
	case FuncClamp:
		return OpClamp, true
	case FuncWrap:
		return OpWrap, true
	case FuncRGBToYCrCb:
		return OpRGBToYCrCb, true
	case FuncYCrCbToRGB:
		return OpYCrCbToRGB, true
	}
	return 0, false
}

// Functions returns the builtin names in sorted order.
func Functions() []string {
	names := make([]string, 0, numFuncs)
	for f := Func(0); f < numFuncs; f++ {
		names = append(names, funcTable[f].name)
	}
	sort.Strings(names)
	return names
}

// suggestFunction returns the builtin whose name matches name ignoring case.
func suggestFunction(name string) (string, bool) {
	for f := Func(0); f < numFuncs; f++ {
		if strings.EqualFold(funcTable[f].name, name) {
			return funcTable[f].name, true
		}
	}
	return "", false
}
