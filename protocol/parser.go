package protocol

// Parser is a non-blocking state machine that assembles device-to-host
// packets from a raw byte stream. Bytes are fed one at a time; a complete,
// checksum-valid packet is returned as soon as its end marker arrives.
//
// A corrupted packet is discarded without being surfaced: the parser drops
// back to idle and the next start marker resynchronizes the stream. Unknown
// bytes seen while idle are treated as inter-packet padding.
type Parser struct {
	state parserState
	buf   []byte
	want  int
	key   byte
	sum   byte

	checksumFailures int
	framingDrops     int
	strayBytes       int
}

type parserState int

const (
	stateIdle parserState = iota
	stateKeyData
	stateKeyChecksum
	stateKeyEnd
	stateLineLength
	stateLineData
	stateLineChecksum
	stateLineEnd
	stateDebugData
)

// Reset returns the parser to idle and clears any partial packet.
func (p *Parser) Reset() {
	p.state = stateIdle
	p.buf = p.buf[:0]
	p.want = 0
	p.key = 0
	p.sum = 0
}

// ChecksumFailures counts packets dropped for a bad checksum.
func (p *Parser) ChecksumFailures() int { return p.checksumFailures }

// FramingDrops counts packets dropped for a missing end marker.
func (p *Parser) FramingDrops() int { return p.framingDrops }

// StrayBytes counts non-marker bytes skipped while idle.
func (p *Parser) StrayBytes() int { return p.strayBytes }

// Feed consumes one byte and returns a completed packet, or nil if more
// bytes are needed or the byte was discarded.
func (p *Parser) Feed(b byte) Packet {
	switch p.state {
	case stateIdle:
		return p.feedIdle(b)

	case stateKeyData:
		p.key = b
		p.state = stateKeyChecksum
	case stateKeyChecksum:
		p.sum = b
		p.state = stateKeyEnd
	case stateKeyEnd:
		p.state = stateIdle
		if b != KeyEnd {
			p.framingDrops++
			return nil
		}
		if p.sum != KeyChecksum(p.key) {
			p.checksumFailures++
			return nil
		}
		return Key{Code: p.key}

	case stateLineLength:
		p.want = int(b)
		p.buf = p.buf[:0]
		if p.want == 0 {
			p.state = stateLineChecksum
		} else {
			p.state = stateLineData
		}
	case stateLineData:
		p.buf = append(p.buf, b)
		if len(p.buf) >= p.want {
			p.state = stateLineChecksum
		}
	case stateLineChecksum:
		p.sum = b
		p.state = stateLineEnd
	case stateLineEnd:
		p.state = stateIdle
		if b != LineEnd {
			p.framingDrops++
			return nil
		}
		if p.sum != LineChecksum(p.buf) {
			p.checksumFailures++
			return nil
		}
		return Line{Text: string(p.buf)}

	case stateDebugData:
		if b == DebugEnd {
			p.state = stateIdle
			msg := string(p.buf)
			p.buf = p.buf[:0]
			return Debug{Message: msg}
		}
		p.buf = append(p.buf, b)
	}
	return nil
}

func (p *Parser) feedIdle(b byte) Packet {
	switch b {
	case ReadyMarker:
		return Ready{}
	case KeyStart:
		p.state = stateKeyData
	case LineStart:
		p.state = stateLineLength
	case DebugStart:
		p.state = stateDebugData
		p.buf = p.buf[:0]
	case Padding:
		// filler, skip
	default:
		p.strayBytes++
	}
	return nil
}
