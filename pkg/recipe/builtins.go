package recipe

import (
	"fmt"
	"strings"

	v3 "github.com/deadsy/sdfx/vec/v3"
	zygo "github.com/glycerine/zygomys/zygo"

	"github.com/akrolimb/socketlab/pkg/socket"
)

// kwPrefix marks keyword symbols rewritten by preprocessSource.
const kwPrefix = "__kw_"

// preprocessSource rewrites recipe syntax into forms zygomys accepts:
// :keyword tokens become "__kw_keyword" string literals (avoids registering
// every keyword as a global), kebab-case identifiers become underscore form
// (zygomys reads hyphens as subtraction), and ; line comments become //.
// String literal boundaries are respected.
func preprocessSource(source string) string {
	out := make([]byte, 0, len(source)+len(source)/4)
	b := []byte(source)
	i := 0
	for i < len(b) {
		switch {
		case b[i] == '"' || b[i] == '`':
			quote := b[i]
			out = append(out, b[i])
			i++
			for i < len(b) && b[i] != quote {
				if quote == '"' && b[i] == '\\' && i+1 < len(b) {
					out = append(out, b[i], b[i+1])
					i += 2
					continue
				}
				out = append(out, b[i])
				i++
			}
			if i < len(b) {
				out = append(out, b[i])
				i++
			}
		case b[i] == ';':
			out = append(out, '/', '/')
			for i < len(b) && b[i] == ';' {
				i++
			}
			for i < len(b) && b[i] != '\n' {
				out = append(out, b[i])
				i++
			}
		case b[i] == ':' && i+1 < len(b) && isLetter(b[i+1]):
			j := i + 1
			for j < len(b) && isKWChar(b[j]) {
				j++
			}
			out = append(out, '"')
			out = append(out, kwPrefix...)
			for _, c := range b[i+1 : j] {
				if c == '-' {
					c = '_'
				}
				out = append(out, c)
			}
			out = append(out, '"')
			i = j
		case b[i] == '-' && i > 0 && i+1 < len(b) && isIdentChar(b[i-1]) && isLetter(b[i+1]):
			out = append(out, '_')
			i++
		default:
			out = append(out, b[i])
			i++
		}
	}
	return string(out)
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isKWChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '-' || c == '_'
}

func isIdentChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '_'
}

// sexpVec3 carries a 3D point between builtins.
type sexpVec3 struct {
	vec v3.Vec
}

func (v *sexpVec3) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(vec3 %.1f %.1f %.1f)", v.vec.X, v.vec.Y, v.vec.Z)
}

func (v *sexpVec3) Type() *zygo.RegisteredType { return nil }

// kwArgs is a parsed mixed positional/keyword argument list.
type kwArgs struct {
	kw         map[string]zygo.Sexp
	positional []zygo.Sexp
}

// parseArgs splits args on the __kw_ markers left by preprocessSource.
func parseArgs(args []zygo.Sexp) kwArgs {
	res := kwArgs{kw: make(map[string]zygo.Sexp)}
	i := 0
	for i < len(args) {
		if name, ok := isKW(args[i]); ok {
			if i+1 < len(args) {
				res.kw[name] = args[i+1]
				i += 2
			} else {
				res.kw[name] = zygo.SexpNull
				i++
			}
			continue
		}
		res.positional = append(res.positional, args[i])
		i++
	}
	return res
}

func isKW(s zygo.Sexp) (string, bool) {
	str, ok := s.(*zygo.SexpStr)
	if !ok || !strings.HasPrefix(str.S, kwPrefix) {
		return "", false
	}
	return str.S[len(kwPrefix):], true
}

func toFloat64(s zygo.Sexp) (float64, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return float64(v.Val), nil
	case *zygo.SexpFloat:
		return v.Val, nil
	}
	return 0, fmt.Errorf("expected number, got %T (%s)", s, s.SexpString(nil))
}

func toVec3(s zygo.Sexp) (v3.Vec, error) {
	if v, ok := s.(*sexpVec3); ok {
		return v.vec, nil
	}
	return v3.Vec{}, fmt.Errorf("expected (vec3 x y z), got %T (%s)", s, s.SexpString(nil))
}

// kwFloat reads an optional keyword number into dst.
func kwFloat(pa kwArgs, name string, dst *float64) error {
	v, ok := pa.kw[name]
	if !ok {
		return nil
	}
	f, err := toFloat64(v)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	*dst = f
	return nil
}

// planBuilder accumulates the plan while a recipe evaluates.
type planBuilder struct {
	plan socket.Plan
}

// registerBuiltins installs the recipe DSL into a zygomys environment.
// Builtins append to the builder in evaluation order, which preserves the
// strict mark ordering the sculptor depends on.
func registerBuiltins(env *zygo.Zlisp, b *planBuilder) {

	// (vec3 x y z)
	env.AddFunction("vec3", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 3 {
			return zygo.SexpNull, fmt.Errorf("vec3: want 3 numbers, got %d args", len(args))
		}
		var vec v3.Vec
		for i, dst := range []*float64{&vec.X, &vec.Y, &vec.Z} {
			f, err := toFloat64(args[i])
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("vec3: %w", err)
			}
			*dst = f
		}
		return &sexpVec3{vec: vec}, nil
	})

	// (socket :clearance 2.5 :wall 4.0 :voxel 0.5)
	env.AddFunction("socket", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if err := kwFloat(pa, "clearance", &b.plan.ClearanceMM); err != nil {
			return zygo.SexpNull, fmt.Errorf("socket: %w", err)
		}
		if err := kwFloat(pa, "wall", &b.plan.WallMM); err != nil {
			return zygo.SexpNull, fmt.Errorf("socket: %w", err)
		}
		if v, ok := pa.kw["voxel"]; ok {
			f, err := toFloat64(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("socket: voxel: %w", err)
			}
			b.plan.VoxelMM = &f
		}
		return zygo.SexpNull, nil
	})

	// (trim-plane :z 240)
	env.AddFunction("trim_plane", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		v, ok := pa.kw["z"]
		if !ok {
			return zygo.SexpNull, fmt.Errorf("trim-plane: missing :z")
		}
		f, err := toFloat64(v)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("trim-plane: z: %w", err)
		}
		b.plan.TrimZMM = &f
		return zygo.SexpNull, nil
	})

	markFn := func(dslName string, mt socket.MarkType, needsAmount bool) {
		env.AddFunction(dslName, func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
			pa := parseArgs(args)
			mk := socket.Mark{Type: mt, RadiusMM: 10.0, AmountMM: 1.0}

			at, ok := pa.kw["at"]
			if !ok {
				return zygo.SexpNull, fmt.Errorf("%s: missing :at", dslName)
			}
			center, err := toVec3(at)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("%s: at: %w", dslName, err)
			}
			mk.Center = center

			if err := kwFloat(pa, "radius", &mk.RadiusMM); err != nil {
				return zygo.SexpNull, fmt.Errorf("%s: %w", dslName, err)
			}
			if needsAmount {
				if err := kwFloat(pa, "amount", &mk.AmountMM); err != nil {
					return zygo.SexpNull, fmt.Errorf("%s: %w", dslName, err)
				}
			}
			if !mk.Valid() {
				return zygo.SexpNull, fmt.Errorf("%s: invalid mark parameters", dslName)
			}
			b.plan.Marks = append(b.plan.Marks, mk)
			return zygo.SexpNull, nil
		})
	}

	// (pad :at (vec3 x y z) :radius 20 :amount 2)
	markFn("pad", socket.MarkPad, true)
	// (relief :at (vec3 x y z) :radius 12 :amount 1.5)
	markFn("relief", socket.MarkRelief, true)
	// (trim-sphere :at (vec3 x y z) :radius 15)
	markFn("trim_sphere", socket.MarkTrim, false)
}
