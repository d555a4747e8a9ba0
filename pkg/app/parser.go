package app

// Parser states, advanced one character at a time.
const (
	psPreamble = iota
	psOpcode
	psFirstGap
	psFirstArg
	psSecondGap
	psSecondArg
	psTail
	psError
)

// helpName is the opcode substituted when a line contains "?".
var helpName = CmdName{'H', 'L', 'P'}

// Parser turns received lines into commands, one line at a time.
// Parsing a line discards any uncollected command from the previous
// one; the result is collected with TakeCommand.
type Parser struct {
	have bool
	cmd  Cmd
}

// Reset discards any pending command.
func (p *Parser) Reset() {
	p.have = false
	p.cmd = Cmd{}
}

// ParseLine scans one line: optional whitespace, an opcode of up to
// CmdChars letters, then up to two whitespace-separated decimal
// arguments. It returns true for an empty line or a well-formed
// command and false for anything else. A "?" anywhere on the line
// stands in for the built-in help command, overriding the rest of the
// line.
func (p *Parser) ParseLine(line []byte) bool {
	p.Reset()

	state := psPreamble
	opidx := 0
	sawQuestion := false

	for _, c := range line {
		if c == 0 {
			break
		}

		// Classify, uppercasing letters on the way.
		isLetter, isDigit, isWhite := false, false, false
		switch {
		case c >= 'a' && c <= 'z':
			isLetter = true
			c -= 'a' - 'A'
		case c >= 'A' && c <= 'Z':
			isLetter = true
		case c >= '0' && c <= '9':
			isDigit = true
		case c <= ' ':
			isWhite = true
		case c == '?':
			sawQuestion = true
		}

		// State transition first; data and length checks follow on
		// the new state.
		switch state {
		case psPreamble:
			if isLetter {
				state = psOpcode
			} else if !isWhite {
				state = psError
			}
		case psOpcode:
			if isWhite {
				state = psFirstGap
			} else if !isLetter {
				state = psError
			}
		case psFirstGap:
			if isDigit {
				state = psFirstArg
			} else if !isWhite {
				state = psError
			}
		case psFirstArg:
			if isWhite {
				state = psSecondGap
			} else if !isDigit {
				state = psError
			}
		case psSecondGap:
			if isDigit {
				state = psSecondArg
			} else if !isWhite {
				state = psError
			}
		case psSecondArg:
			if isWhite {
				state = psTail
			} else if !isDigit {
				state = psError
			}
		case psTail:
			if !isWhite {
				state = psError
			}
		}

		switch state {
		case psOpcode:
			p.have = true
			if opidx < CmdChars {
				p.cmd.Name[opidx] = c
				opidx++
			} else {
				state = psError
			}
		case psFirstArg:
			p.cmd.Args = 1
			p.cmd.Arg1 = p.cmd.Arg1*10 + uint16(c-'0')
		case psSecondArg:
			p.cmd.Args = 2
			p.cmd.Arg2 = p.cmd.Arg2*10 + uint16(c-'0')
		}
	}

	ok := state != psError

	// "?" wins over whatever else was on the line, including errors.
	if sawQuestion {
		p.Reset()
		p.have = true
		p.cmd.Name = helpName
		ok = true
	}

	if !ok {
		p.Reset()
	}
	return ok
}

// TakeCommand collects the pending command, if any. Collection is
// one-shot; a second call reports no command.
func (p *Parser) TakeCommand() (Cmd, bool) {
	if !p.have {
		return Cmd{}, false
	}
	p.have = false
	return p.cmd, true
}
