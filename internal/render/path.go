package render

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/paulmach/orb"
)

// ParseOutline reads the subset of SVG path data used by country datasets:
// absolute and relative M, L, H, V and Z commands, with implicit lineto
// after a moveto. Each subpath becomes one ring of view-box points; closed
// subpaths repeat their first point. Curves are not supported and yield an
// error.
func ParseOutline(d string) ([]orb.Ring, error) {
	toks, err := tokenize(d)
	if err != nil {
		return nil, err
	}

	var (
		rings   []orb.Ring
		cur     orb.Ring
		pos     orb.Point
		start   orb.Point
		cmd     byte
		numArgs []float64
	)

	flush := func() {
		if len(cur) > 0 {
			rings = append(rings, cur)
		}
		cur = nil
	}

	i := 0
	for i < len(toks) {
		tok := toks[i]
		if isCommand(tok) {
			cmd = tok[0]
			i++
			if cmd == 'Z' || cmd == 'z' {
				if len(cur) > 0 {
					cur = append(cur, start)
				}
				pos = start
				flush()
				continue
			}
		} else if cmd == 0 {
			return nil, fmt.Errorf("outline: number %q before first command", tok)
		}

		n := argCount(cmd)
		if n == 0 {
			return nil, fmt.Errorf("outline: unsupported command %q", cmd)
		}
		numArgs = numArgs[:0]
		for len(numArgs) < n {
			if i >= len(toks) || isCommand(toks[i]) {
				return nil, fmt.Errorf("outline: command %q needs %d arguments", cmd, n)
			}
			v, err := strconv.ParseFloat(toks[i], 64)
			if err != nil {
				return nil, fmt.Errorf("outline: bad number %q: %w", toks[i], err)
			}
			numArgs = append(numArgs, v)
			i++
		}

		rel := unicode.IsLower(rune(cmd))
		switch unicode.ToUpper(rune(cmd)) {
		case 'M':
			flush()
			p := orb.Point{numArgs[0], numArgs[1]}
			if rel {
				p = orb.Point{pos.X() + p.X(), pos.Y() + p.Y()}
			}
			pos, start = p, p
			cur = orb.Ring{p}
			// Further coordinate pairs after a moveto are implicit linetos.
			if rel {
				cmd = 'l'
			} else {
				cmd = 'L'
			}
		case 'L':
			p := orb.Point{numArgs[0], numArgs[1]}
			if rel {
				p = orb.Point{pos.X() + p.X(), pos.Y() + p.Y()}
			}
			pos = p
			cur = append(cur, p)
		case 'H':
			x := numArgs[0]
			if rel {
				x += pos.X()
			}
			pos = orb.Point{x, pos.Y()}
			cur = append(cur, pos)
		case 'V':
			y := numArgs[0]
			if rel {
				y += pos.Y()
			}
			pos = orb.Point{pos.X(), y}
			cur = append(cur, pos)
		}
	}
	flush()
	return rings, nil
}

func argCount(cmd byte) int {
	switch cmd {
	case 'M', 'm', 'L', 'l':
		return 2
	case 'H', 'h', 'V', 'v':
		return 1
	default:
		return 0
	}
}

func isCommand(tok string) bool {
	return len(tok) == 1 && unicode.IsLetter(rune(tok[0])) && tok != "e" && tok != "E"
}

// tokenize splits path data into single-letter commands and numbers.
// Separators are whitespace and commas; a sign starts a new number.
func tokenize(d string) ([]string, error) {
	var toks []string
	var b strings.Builder
	emit := func() {
		if b.Len() > 0 {
			toks = append(toks, b.String())
			b.Reset()
		}
	}
	prev := rune(0)
	for _, r := range d {
		switch {
		case r == ',' || unicode.IsSpace(r):
			emit()
		case r == 'e' || r == 'E':
			if b.Len() == 0 {
				return nil, fmt.Errorf("outline: unexpected %q", r)
			}
			b.WriteRune(r)
		case unicode.IsLetter(r):
			emit()
			toks = append(toks, string(r))
		case r == '-' || r == '+':
			if prev != 'e' && prev != 'E' {
				emit()
			}
			b.WriteRune(r)
		case unicode.IsDigit(r) || r == '.':
			b.WriteRune(r)
		default:
			return nil, fmt.Errorf("outline: unexpected %q", r)
		}
		prev = r
	}
	emit()
	return toks, nil
}
