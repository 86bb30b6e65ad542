// Package dbc loads a CAN message database from DBC text. It provides the
// message/signal model consumed by the layout and codec packages.
//
// Only the object definitions the code generator needs are parsed: VERSION,
// BO_ (messages), SG_ (signals), CM_ (comments) and SIG_VALTYPE_ (float
// markers). Every other keyword is skipped line-wise.
package dbc

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gostdlib/base/context"
	"github.com/johnsiilver/halfpike"
)

// ByteOrder is the bit numbering convention of a signal.
type ByteOrder uint8

const (
	OrderUnknown ByteOrder = 0
	// BigEndian numbers bits most-significant first within a byte (DBC @0).
	BigEndian ByteOrder = 1
	// LittleEndian numbers bits least-significant first (DBC @1).
	LittleEndian ByteOrder = 2
)

// String implements fmt.Stringer.
func (b ByteOrder) String() string {
	switch b {
	case BigEndian:
		return "big_endian"
	case LittleEndian:
		return "little_endian"
	}
	return "unknown"
}

// Signal is one bit-packed field of a Message. StartBit counts from bit 0 of
// byte 0; for big-endian signals it names the most-significant bit of the
// field, for little-endian the least-significant.
type Signal struct {
	Name      string
	StartBit  int
	BitLength int
	Order     ByteOrder
	Signed    bool

	// Float is set by a SIG_VALTYPE_ entry. Float signals are excluded from
	// generated codecs.
	Float bool
	// Multiplexed is set when the signal carries an m<N> marker and is only
	// present for one selector value. Selector marks the M signal itself.
	Multiplexed   bool
	Selector      bool
	MultiplexerID int

	// Metadata below only decorates generated documentation.
	Scale     float64
	Offset    float64
	Min       float64
	Max       float64
	Unit      string
	Comment   string
	Receivers []string
}

// Message is one fixed-length CAN frame definition.
type Message struct {
	Name string
	// ID is the frame identifier with the DBC extended-frame flag stripped.
	ID         uint32
	IsExtended bool
	// ByteLength is the total encoded size of the frame.
	ByteLength int
	Sender     string
	Comment    string
	// Signals are kept in declaration order; generated records preserve it.
	Signals []*Signal
}

// Signal returns the named signal or nil.
func (m *Message) Signal(name string) *Signal {
	for _, s := range m.Signals {
		if s.Name == name {
			return s
		}
	}
	return nil
}

// Database is a parsed DBC file.
type Database struct {
	Version  string
	Messages []*Message

	byID map[uint32]*Message
}

// New creates an empty Database ready to be handed to halfpike.Parse.
func New() *Database {
	return &Database{byID: map[uint32]*Message{}}
}

// Parse reads DBC content into a Database.
func Parse(ctx context.Context, content string) (*Database, error) {
	db := New()
	if err := halfpike.Parse(ctx, content, db); err != nil {
		return nil, err
	}
	return db, nil
}

// ByID returns the message with frame id or nil.
func (d *Database) ByID(id uint32) *Message {
	return d.byID[id]
}

// Validate implements halfpike.Validator. It checks the structural
// preconditions the code generator assumes: positive sizes and every signal's
// bits falling inside its message's byte length. Bit-range overlap between
// signals is not checked here, multiplexed groups legitimately overlap.
func (d *Database) Validate() error {
	for _, m := range d.Messages {
		if m.ByteLength <= 0 {
			return fmt.Errorf("message %q has byte length %d, must be > 0", m.Name, m.ByteLength)
		}
		for _, s := range m.Signals {
			if s.BitLength <= 0 {
				return fmt.Errorf("message %q signal %q has bit length %d, must be > 0", m.Name, s.Name, s.BitLength)
			}
			if s.StartBit < 0 {
				return fmt.Errorf("message %q signal %q has negative start bit", m.Name, s.Name)
			}
			if last := lastByte(s); last > m.ByteLength-1 {
				return fmt.Errorf("message %q signal %q ends in byte %d, outside the %d byte frame", m.Name, s.Name, last, m.ByteLength)
			}
		}
	}
	return nil
}

// lastByte is the highest byte index a signal touches.
func lastByte(s *Signal) int {
	if s.Order == BigEndian {
		pos := s.StartBit % 8
		rest := s.BitLength - (pos + 1)
		if rest <= 0 {
			return s.StartBit / 8
		}
		return s.StartBit/8 + (rest+7)/8
	}
	return (s.StartBit + s.BitLength - 1) / 8
}

// Start is the start point for reading the DBC. Implements halfpike.ParseObject.
func (d *Database) Start(ctx context.Context, p *halfpike.Parser) halfpike.ParseFn {
	return d.FindNext
}

func (d *Database) FindNext(ctx context.Context, p *halfpike.Parser) halfpike.ParseFn {
	line := p.Next()
	if p.EOF(line) {
		return nil
	}

	switch line.Items[0].Val {
	case "VERSION":
		p.Backup()
		return d.ParseVersion
	case "BO_":
		p.Backup()
		return d.ParseMessage
	case "SG_":
		return p.Errorf("[Line %d] error: SG_ outside of a BO_ block", line.LineNum)
	case "CM_":
		p.Backup()
		return d.ParseComment
	case "SIG_VALTYPE_":
		p.Backup()
		return d.ParseSignalValueType
	default:
		// NS_, BU_, BS_, BA_, VAL_ and friends carry nothing the generator
		// uses. Skip the line.
		return d.FindNext
	}
}

// ParseVersion reads: VERSION "string"
func (d *Database) ParseVersion(ctx context.Context, p *halfpike.Parser) halfpike.ParseFn {
	line := p.Next()
	if len(line.Items) < 2 {
		return p.Errorf("[Line %d] error: got %q, want: 'VERSION \"{{string}}\"'", line.LineNum, line.Raw)
	}
	v, _, err := quoted(line.Raw, 0)
	if err != nil {
		return p.Errorf("[Line %d] error: VERSION value: %s", line.LineNum, err)
	}
	d.Version = v
	return d.FindNext
}

// ParseMessage reads a BO_ line and all SG_ lines that follow it:
//
//	BO_ {{id}} {{Name}}: {{size}} {{sender}}
//	 SG_ {{Name}} : {{start}}|{{length}}@{{order}}{{sign}} ({{scale}},{{offset}}) [{{min}}|{{max}}] "{{unit}}" {{receivers}}
func (d *Database) ParseMessage(ctx context.Context, p *halfpike.Parser) halfpike.ParseFn {
	line := p.Next()
	if len(line.Items) < 5 {
		return p.Errorf("[Line %d] error: got %q, want: 'BO_ {{id}} {{Name}}: {{size}} {{sender}}'", line.LineNum, line.Raw)
	}

	rawID, err := strconv.ParseUint(line.Items[1].Val, 10, 32)
	if err != nil {
		return p.Errorf("[Line %d] error: frame id %q is not an unsigned integer", line.LineNum, line.Items[1].Val)
	}

	m := &Message{
		ID:         uint32(rawID) &^ extendedFlag,
		IsExtended: uint32(rawID)&extendedFlag != 0,
	}

	name := line.Items[2].Val
	sizeIdx := 3
	if strings.HasSuffix(name, ":") {
		name = strings.TrimSuffix(name, ":")
	} else {
		if len(line.Items) < 6 || line.Items[3].Val != ":" {
			return p.Errorf("[Line %d] error: expected ':' after message name, got %q", line.LineNum, line.Raw)
		}
		sizeIdx = 4
	}
	m.Name = name

	m.ByteLength, err = line.Items[sizeIdx].ToInt()
	if err != nil {
		return p.Errorf("[Line %d] error: message size %q is not an integer", line.LineNum, line.Items[sizeIdx].Val)
	}
	m.Sender = line.Items[sizeIdx+1].Val

	if _, ok := d.byID[m.ID]; ok {
		return p.Errorf("[Line %d] error: duplicate frame id %d", line.LineNum, m.ID)
	}
	d.Messages = append(d.Messages, m)
	d.byID[m.ID] = m

	// Consume the SG_ block.
	for {
		line = p.Next()
		if p.EOF(line) {
			return nil
		}
		if line.Items[0].Val != "SG_" {
			p.Backup()
			return d.FindNext
		}
		if err := d.parseSignal(m, line); err != nil {
			return p.Errorf("[Line %d] error: %s", line.LineNum, err)
		}
	}
}

const extendedFlag = uint32(0x80000000)

func (d *Database) parseSignal(m *Message, line halfpike.Line) error {
	if len(line.Items) < 8 {
		return fmt.Errorf("malformed SG_ line: %q", line.Raw)
	}

	s := &Signal{Name: line.Items[1].Val, MultiplexerID: -1}

	// Between the name and ':' there may be a multiplexer marker: M for the
	// selector, m<N> for a multiplexed signal.
	specIdx := 3
	switch marker := line.Items[2].Val; {
	case marker == ":":
		// No marker.
	case marker == "M":
		s.Selector = true
	case strings.HasPrefix(marker, "m"):
		id, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(marker, "m"), "M"))
		if err != nil {
			return fmt.Errorf("bad multiplexer marker %q", marker)
		}
		s.Multiplexed = true
		s.MultiplexerID = id
		if strings.HasSuffix(marker, "M") {
			s.Selector = true
		}
	default:
		return fmt.Errorf("expected ':' or multiplexer marker after signal name, got %q", marker)
	}
	if s.Selector || s.Multiplexed {
		if line.Items[3].Val != ":" {
			return fmt.Errorf("expected ':' after multiplexer marker, got %q", line.Items[3].Val)
		}
		specIdx = 4
	}

	if err := parseBitSpec(s, line.Items[specIdx].Val); err != nil {
		return err
	}
	if err := parseScaleOffset(s, line.Items[specIdx+1].Val); err != nil {
		return err
	}
	if err := parseRange(s, line.Items[specIdx+2].Val); err != nil {
		return err
	}

	// Unit is quoted in the raw line after the [min|max] group; it may
	// contain spaces, so it cannot be pulled from a single item.
	bracket := strings.Index(line.Raw, "]")
	if bracket < 0 {
		return fmt.Errorf("malformed SG_ line: %q", line.Raw)
	}
	unit, after, err := quoted(line.Raw, bracket)
	if err != nil {
		return fmt.Errorf("signal %q unit: %w", s.Name, err)
	}
	s.Unit = unit

	recv := strings.TrimSpace(line.Raw[after:])
	if recv != "" && recv != "Vector__XXX" {
		s.Receivers = strings.Split(recv, ",")
	}

	if m.Signal(s.Name) != nil {
		return fmt.Errorf("message %q already has a signal named %q", m.Name, s.Name)
	}
	m.Signals = append(m.Signals, s)
	return nil
}

// parseBitSpec reads {{start}}|{{length}}@{{order}}{{sign}}, e.g. 24|16@1+ .
func parseBitSpec(s *Signal, spec string) error {
	startStr, rest, ok := strings.Cut(spec, "|")
	if !ok {
		return fmt.Errorf("bad bit spec %q, want 'start|length@order+/-'", spec)
	}
	lenStr, ordStr, ok := strings.Cut(rest, "@")
	if !ok {
		return fmt.Errorf("bad bit spec %q, want 'start|length@order+/-'", spec)
	}

	var err error
	if s.StartBit, err = strconv.Atoi(startStr); err != nil {
		return fmt.Errorf("bad start bit in %q", spec)
	}
	if s.BitLength, err = strconv.Atoi(lenStr); err != nil {
		return fmt.Errorf("bad bit length in %q", spec)
	}

	switch ordStr {
	case "0+":
		s.Order = BigEndian
	case "0-":
		s.Order, s.Signed = BigEndian, true
	case "1+":
		s.Order = LittleEndian
	case "1-":
		s.Order, s.Signed = LittleEndian, true
	default:
		return fmt.Errorf("bad byte order/sign %q in %q", ordStr, spec)
	}
	return nil
}

// parseScaleOffset reads ({{scale}},{{offset}}).
func parseScaleOffset(s *Signal, spec string) error {
	inner := strings.TrimSuffix(strings.TrimPrefix(spec, "("), ")")
	scaleStr, offStr, ok := strings.Cut(inner, ",")
	if !ok {
		return fmt.Errorf("bad scale/offset %q, want '(scale,offset)'", spec)
	}
	var err error
	if s.Scale, err = strconv.ParseFloat(scaleStr, 64); err != nil {
		return fmt.Errorf("bad scale in %q", spec)
	}
	if s.Offset, err = strconv.ParseFloat(offStr, 64); err != nil {
		return fmt.Errorf("bad offset in %q", spec)
	}
	return nil
}

// parseRange reads [{{min}}|{{max}}].
func parseRange(s *Signal, spec string) error {
	inner := strings.TrimSuffix(strings.TrimPrefix(spec, "["), "]")
	minStr, maxStr, ok := strings.Cut(inner, "|")
	if !ok {
		return fmt.Errorf("bad range %q, want '[min|max]'", spec)
	}
	var err error
	if s.Min, err = strconv.ParseFloat(minStr, 64); err != nil {
		return fmt.Errorf("bad minimum in %q", spec)
	}
	if s.Max, err = strconv.ParseFloat(maxStr, 64); err != nil {
		return fmt.Errorf("bad maximum in %q", spec)
	}
	return nil
}

// ParseComment reads: CM_ [SG_ {{id}} {{signal}}|BO_ {{id}}] "{{text}}";
// Comments for objects we do not track are skipped.
func (d *Database) ParseComment(ctx context.Context, p *halfpike.Parser) halfpike.ParseFn {
	line := p.Next()
	if len(line.Items) < 2 {
		return p.Errorf("[Line %d] error: malformed CM_ line: %q", line.LineNum, line.Raw)
	}

	text, err := d.commentText(p, line)
	if err != nil {
		return p.Errorf("[Line %d] error: %s", line.LineNum, err)
	}

	switch line.Items[1].Val {
	case "SG_":
		if len(line.Items) < 4 {
			return p.Errorf("[Line %d] error: malformed CM_ SG_ line: %q", line.LineNum, line.Raw)
		}
		m, sigName, errFn := d.lookup(p, line, 2)
		if errFn != nil {
			return errFn
		}
		sig := m.Signal(sigName)
		if sig == nil {
			return p.Errorf("[Line %d] error: CM_ for unknown signal %q in message %q", line.LineNum, sigName, m.Name)
		}
		sig.Comment = text
	case "BO_":
		if len(line.Items) < 3 {
			return p.Errorf("[Line %d] error: malformed CM_ BO_ line: %q", line.LineNum, line.Raw)
		}
		m, _, errFn := d.lookup(p, line, 2)
		if errFn != nil {
			return errFn
		}
		m.Comment = text
	}
	return d.FindNext
}

// commentText extracts the quoted comment, consuming continuation lines until
// the closing quote when the comment spans lines.
func (d *Database) commentText(p *halfpike.Parser, line halfpike.Line) (string, error) {
	raw := line.Raw
	first := strings.Index(raw, `"`)
	if first < 0 {
		return "", fmt.Errorf("CM_ line has no quoted text: %q", raw)
	}
	buff := strings.Builder{}
	rest := raw[first+1:]
	for {
		if end := strings.Index(rest, `"`); end >= 0 {
			buff.WriteString(rest[:end])
			return buff.String(), nil
		}
		buff.WriteString(rest)
		next := p.Next()
		if p.EOF(next) {
			return "", fmt.Errorf("CM_ comment has no closing quote")
		}
		rest = next.Raw
	}
}

// lookup resolves the frame id at item idx to a message; the following item,
// if any, is returned as a signal name.
func (d *Database) lookup(p *halfpike.Parser, line halfpike.Line, idx int) (*Message, string, halfpike.ParseFn) {
	id, err := strconv.ParseUint(line.Items[idx].Val, 10, 32)
	if err != nil {
		return nil, "", p.Errorf("[Line %d] error: frame id %q is not an unsigned integer", line.LineNum, line.Items[idx].Val)
	}
	m := d.byID[uint32(id)&^extendedFlag]
	if m == nil {
		return nil, "", p.Errorf("[Line %d] error: reference to unknown frame id %d", line.LineNum, id)
	}
	name := ""
	if len(line.Items) > idx+1 {
		name = line.Items[idx+1].Val
	}
	return m, name, nil
}

// ParseSignalValueType reads: SIG_VALTYPE_ {{id}} {{signal}} : {{type}};
// Types 1 (float) and 2 (double) mark the signal float-valued.
func (d *Database) ParseSignalValueType(ctx context.Context, p *halfpike.Parser) halfpike.ParseFn {
	line := p.Next()
	if len(line.Items) < 4 {
		return p.Errorf("[Line %d] error: malformed SIG_VALTYPE_ line: %q", line.LineNum, line.Raw)
	}
	m, sigName, errFn := d.lookup(p, line, 1)
	if errFn != nil {
		return errFn
	}
	sig := m.Signal(sigName)
	if sig == nil {
		return p.Errorf("[Line %d] error: SIG_VALTYPE_ for unknown signal %q in message %q", line.LineNum, sigName, m.Name)
	}

	// The value is the token after the ':' separator, which may arrive as
	// its own item or glued to the separator.
	val := line.Items[3].Val
	if val == ":" {
		if len(line.Items) < 5 {
			return p.Errorf("[Line %d] error: malformed SIG_VALTYPE_ line: %q", line.LineNum, line.Raw)
		}
		val = line.Items[4].Val
	} else {
		val = strings.TrimPrefix(val, ":")
	}
	val = strings.TrimSuffix(val, ";")
	switch val {
	case "1", "2":
		sig.Float = true
	case "0":
		// Integer, the default.
	default:
		return p.Errorf("[Line %d] error: unknown signal value type %q", line.LineNum, val)
	}
	return d.FindNext
}

// quoted returns the text between the first pair of double quotes at or after
// from, and the index just past the closing quote.
func quoted(raw string, from int) (string, int, error) {
	start := strings.Index(raw[from:], `"`)
	if start < 0 {
		return "", 0, fmt.Errorf("no quoted string in %q", raw[from:])
	}
	start += from + 1
	end := strings.Index(raw[start:], `"`)
	if end < 0 {
		return "", 0, fmt.Errorf("unterminated quoted string in %q", raw[from:])
	}
	return raw[start : start+end], start + end + 1, nil
}
