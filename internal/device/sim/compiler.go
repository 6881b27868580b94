package sim

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/samcharles93/modexp/internal/device"
)

// param is one parsed kernel parameter.
type param struct {
	name     string
	typeName string
	pointer  bool
	space    device.AddressSpace
}

type kernelDecl struct {
	name   string
	params []param
}

// unit is a successfully compiled program.
type unit struct {
	kernels map[string]*kernelDecl
	argInfo bool
}

type buildOptions struct {
	defines map[string]string
	argInfo bool
}

var validStd = map[string]bool{
	"CL1.0": true, "CL1.1": true, "CL1.2": true, "CL2.0": true, "CL3.0": true,
}

func parseOptions(options string) (buildOptions, error) {
	opts := buildOptions{defines: make(map[string]string)}
	fields := strings.Fields(options)
	for i := 0; i < len(fields); i++ {
		f := fields[i]
		switch {
		case f == "-D":
			if i+1 >= len(fields) {
				return opts, fmt.Errorf("sim: missing macro after -D: %w", device.ErrInvalidBuildOptions)
			}
			i++
			addDefine(opts.defines, fields[i])
		case strings.HasPrefix(f, "-D"):
			addDefine(opts.defines, f[2:])
		case strings.HasPrefix(f, "-cl-std="):
			if !validStd[strings.TrimPrefix(f, "-cl-std=")] {
				return opts, fmt.Errorf("sim: %q: %w", f, device.ErrInvalidBuildOptions)
			}
		case f == "-cl-kernel-arg-info":
			opts.argInfo = true
		case strings.HasPrefix(f, "-cl-"), f == "-w", f == "-Werror":
		default:
			return opts, fmt.Errorf("sim: %q: %w", f, device.ErrInvalidBuildOptions)
		}
	}
	return opts, nil
}

func addDefine(defines map[string]string, def string) {
	name, value, ok := strings.Cut(def, "=")
	if !ok {
		value = "1"
	}
	defines[name] = value
}

type diagnostics struct {
	lines []string
}

func (d *diagnostics) errorf(line, col int, format string, args ...any) {
	d.lines = append(d.lines, fmt.Sprintf("<source>:%d:%d: error: %s", line, col, fmt.Sprintf(format, args...)))
}

func (d *diagnostics) err() error {
	if len(d.lines) == 0 {
		return nil
	}
	return &device.BuildError{Log: strings.Join(d.lines, "\n")}
}

func compile(source, options string) (*unit, error) {
	opts, err := parseOptions(options)
	if err != nil {
		return nil, err
	}
	var diags diagnostics
	text := stripComments(source, &diags)
	text = preprocess(text, opts.defines, &diags)
	checkBrackets(text, &diags)
	if err := diags.err(); err != nil {
		return nil, err
	}
	kernels := parseKernels(text, &diags)
	if err := diags.err(); err != nil {
		return nil, err
	}
	return &unit{kernels: kernels, argInfo: opts.argInfo}, nil
}

// stripComments blanks comments while keeping every newline, so positions
// in later diagnostics still match the source lines.
func stripComments(src string, diags *diagnostics) string {
	out := []byte(src)
	for i := 0; i < len(out); i++ {
		if out[i] != '/' || i+1 >= len(out) {
			continue
		}
		switch out[i+1] {
		case '/':
			for i < len(out) && out[i] != '\n' {
				out[i] = ' '
				i++
			}
		case '*':
			start := i
			end := strings.Index(string(out[i+2:]), "*/")
			if end < 0 {
				line, col := position(src, start)
				diags.errorf(line, col, "unterminated /* comment")
				end = len(out) - i - 2
			} else {
				end += 2
			}
			for j := i; j < i+2+end && j < len(out); j++ {
				if out[j] != '\n' {
					out[j] = ' '
				}
			}
			i += 1 + end
		}
	}
	return string(out)
}

func position(text string, offset int) (line, col int) {
	line = 1 + strings.Count(text[:offset], "\n")
	col = offset - strings.LastIndex(text[:offset], "\n")
	return line, col
}

// preprocess handles object-like #define and #undef, the conditional
// directives (#if, #ifdef, #ifndef, #elif, #else, #endif) and #error, and
// expands macros in active lines.
func preprocess(text string, defines map[string]string, diags *diagnostics) string {
	macros := make(map[string]string, len(defines))
	for k, v := range defines {
		macros[k] = v
	}

	lines := strings.Split(text, "\n")
	var stack []condFrame
	active := func() bool {
		return len(stack) == 0 || stack[len(stack)-1].active
	}
	condition := func(line, col int, expr string) bool {
		ok, err := evalCondition(expr, macros)
		if err != nil {
			diags.errorf(line, col, "%v", err)
			return false
		}
		return ok
	}

	for i, raw := range lines {
		trimmed := strings.TrimSpace(raw)
		if !strings.HasPrefix(trimmed, "#") {
			if !active() {
				lines[i] = ""
			} else {
				lines[i] = expand(raw, macros)
			}
			continue
		}
		lines[i] = ""
		body := strings.TrimSpace(strings.TrimPrefix(trimmed, "#"))
		fields := strings.Fields(body)
		if len(fields) == 0 {
			continue
		}
		directive := fields[0]
		rest := strings.TrimSpace(strings.TrimPrefix(body, directive))
		line, col := i+1, strings.Index(raw, "#")+1

		switch directive {
		case "if", "ifdef", "ifndef":
			frame := condFrame{parent: active()}
			if frame.parent {
				switch {
				case directive == "if":
					frame.active = condition(line, col, rest)
				case len(fields) < 2:
					diags.errorf(line, col, "macro name missing")
				default:
					_, defined := macros[fields[1]]
					frame.active = defined == (directive == "ifdef")
				}
			}
			frame.taken = frame.active
			stack = append(stack, frame)
		case "elif":
			if len(stack) == 0 {
				diags.errorf(line, col, "#elif without #if")
				continue
			}
			f := &stack[len(stack)-1]
			if f.sawElse {
				diags.errorf(line, col, "#elif after #else")
				continue
			}
			f.active = false
			if f.parent && !f.taken {
				f.active = condition(line, col, rest)
				f.taken = f.active
			}
		case "else":
			if len(stack) == 0 {
				diags.errorf(line, col, "#else without #if")
				continue
			}
			f := &stack[len(stack)-1]
			if f.sawElse {
				diags.errorf(line, col, "#else after #else")
				continue
			}
			f.sawElse = true
			f.active = f.parent && !f.taken
			f.taken = true
		case "endif":
			if len(stack) == 0 {
				diags.errorf(line, col, "#endif without #if")
				continue
			}
			stack = stack[:len(stack)-1]
		case "define":
			if !active() {
				continue
			}
			if len(fields) < 2 {
				diags.errorf(line, col, "macro name missing")
				continue
			}
			macros[fields[1]] = strings.Join(fields[2:], " ")
		case "undef":
			if active() && len(fields) > 1 {
				delete(macros, fields[1])
			}
		case "error":
			if active() {
				diags.errorf(line, col, "%s", rest)
			}
		case "pragma", "warning", "line":
		default:
			if active() {
				diags.errorf(line, col, "unsupported preprocessing directive '#%s'", directive)
			}
		}
	}
	if len(stack) > 0 {
		diags.errorf(len(lines), 1, "unterminated conditional directive")
	}
	return strings.Join(lines, "\n")
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentChar(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}

// expand substitutes macros, rescanning replacements a bounded number of
// times so self-referencing macros terminate.
func expand(line string, macros map[string]string) string {
	for range 8 {
		var b strings.Builder
		changed := false
		for i := 0; i < len(line); {
			c := line[i]
			if !isIdentStart(c) {
				// skip numeric literals such as 0x1f or 10ul whole
				if c >= '0' && c <= '9' {
					j := i
					for j < len(line) && isIdentChar(line[j]) {
						j++
					}
					b.WriteString(line[i:j])
					i = j
					continue
				}
				b.WriteByte(c)
				i++
				continue
			}
			j := i
			for j < len(line) && isIdentChar(line[j]) {
				j++
			}
			word := line[i:j]
			if v, ok := macros[word]; ok {
				b.WriteString(v)
				changed = true
			} else {
				b.WriteString(word)
			}
			i = j
		}
		line = b.String()
		if !changed {
			break
		}
	}
	return line
}

func checkBrackets(text string, diags *diagnostics) {
	type open struct {
		c      byte
		offset int
	}
	pairs := map[byte]byte{')': '(', ']': '[', '}': '{'}
	var stack []open
	for i := 0; i < len(text); i++ {
		switch c := text[i]; c {
		case '"', '\'':
			j := i + 1
			for j < len(text) && text[j] != c && text[j] != '\n' {
				if text[j] == '\\' {
					j++
				}
				j++
			}
			i = j
		case '(', '[', '{':
			stack = append(stack, open{c: c, offset: i})
		case ')', ']', '}':
			if len(stack) == 0 || stack[len(stack)-1].c != pairs[c] {
				line, col := position(text, i)
				diags.errorf(line, col, "extraneous closing '%c'", c)
				return
			}
			stack = stack[:len(stack)-1]
		}
	}
	if len(stack) > 0 {
		top := stack[len(stack)-1]
		line, col := position(text, top.offset)
		closer := map[byte]byte{'(': ')', '[': ']', '{': '}'}[top.c]
		diags.errorf(line, col, "expected '%c' to match this '%c'", closer, top.c)
	}
}

// kernelPattern matches a kernel definition. Attributes may sit between
// the kernel qualifier and the return type, with one level of nested
// parentheses inside __attribute__((...)).
var kernelPattern = regexp.MustCompile(`(?:__kernel|\bkernel)\s+(?:__attribute__\s*\(\((?:[^()]|\([^()]*\))*\)\)\s*)*void\s+([A-Za-z_]\w*)\s*\(([^)]*)\)\s*\{`)

var scalarTypes = map[string]string{
	"char": "char", "signed char": "char", "uchar": "uchar", "unsigned char": "uchar",
	"short": "short", "ushort": "ushort", "unsigned short": "ushort",
	"int": "int", "uint": "uint", "unsigned int": "uint", "unsigned": "uint",
	"long": "long", "ulong": "ulong", "unsigned long": "ulong",
	"float": "float", "double": "double", "half": "half",
	"size_t": "size_t", "bool": "bool",
}

var addressSpaces = map[string]device.AddressSpace{
	"__global": device.AddressGlobal, "global": device.AddressGlobal,
	"__constant": device.AddressConstant, "constant": device.AddressConstant,
	"__local": device.AddressLocal, "local": device.AddressLocal,
	"__private": device.AddressPrivate, "private": device.AddressPrivate,
}

var ignoredQualifiers = map[string]bool{
	"const": true, "restrict": true, "__restrict": true, "volatile": true,
	"__read_only": true, "__write_only": true,
}

func parseKernels(text string, diags *diagnostics) map[string]*kernelDecl {
	kernels := make(map[string]*kernelDecl)
	for _, m := range kernelPattern.FindAllStringSubmatchIndex(text, -1) {
		name := text[m[2]:m[3]]
		if _, dup := kernels[name]; dup {
			line, col := position(text, m[2])
			diags.errorf(line, col, "redefinition of '%s'", name)
			continue
		}
		decl := &kernelDecl{name: name}
		list := text[m[4]:m[5]]
		if strings.TrimSpace(list) != "" && strings.TrimSpace(list) != "void" {
			offset := m[4]
			for _, raw := range strings.Split(list, ",") {
				p, ok := parseParam(raw, text, offset, diags)
				if ok {
					decl.params = append(decl.params, p)
				}
				offset += len(raw) + 1
			}
		}
		kernels[name] = decl
	}
	return kernels
}

func parseParam(raw, text string, offset int, diags *diagnostics) (param, bool) {
	lead := len(raw) - len(strings.TrimLeft(raw, " \t\r\n"))
	line, col := position(text, offset+lead)

	pointer := strings.Contains(raw, "*")
	words := strings.Fields(strings.ReplaceAll(raw, "*", " "))
	p := param{pointer: pointer}
	var typeWords []string
	for _, w := range words {
		if space, ok := addressSpaces[w]; ok {
			p.space = space
			continue
		}
		if ignoredQualifiers[w] {
			continue
		}
		typeWords = append(typeWords, w)
	}
	if len(typeWords) < 2 {
		diags.errorf(line, col, "parameter name omitted")
		return p, false
	}
	p.name = typeWords[len(typeWords)-1]
	spelled := strings.Join(typeWords[:len(typeWords)-1], " ")
	typeName, ok := scalarTypes[spelled]
	if !ok {
		diags.errorf(line, col, "unknown type name '%s'", spelled)
		return p, false
	}
	p.typeName = typeName
	if p.pointer && p.space == device.AddressPrivate {
		diags.errorf(line, col, "kernel parameter cannot be declared as a pointer to the __private address space")
		return p, false
	}
	return p, true
}
