// Package c implements the C language renderer. It emits one header and one
// source file per database: fixed layout structs, frame id defines, and the
// encode/decode function pair for every message.
package c

import (
	"bytes"
	"embed"
	"fmt"
	"strconv"
	"text/template"

	"github.com/gostdlib/base/context"

	"github.com/y0rk9s/cangen/internal/codec"
	"github.com/y0rk9s/cangen/internal/generate"
	"github.com/y0rk9s/cangen/internal/names"
	"github.com/y0rk9s/cangen/internal/render"
)

//go:embed templates/*
var f embed.FS
var templates *template.Template

func init() {
	t, err := template.ParseFS(f, "templates/*.tmpl")
	if err != nil {
		panic(err)
	}
	templates = t

	if _, ok := render.Supported[render.C]; ok {
		panic("someone already registered the C language renderer")
	}
	render.Supported[render.C] = Renderer{}
}

// Renderer implements render.Renderer for the C language.
type Renderer struct{}

// Render implements render.Renderer.Render().
func (r Renderer) Render(ctx context.Context, res *generate.Result, baseName string) ([]render.File, error) {
	data := templateData{
		BaseName:    baseName,
		HeaderName:  baseName + ".h",
		Guard:       "__" + names.Upper(names.Snake(baseName)) + "_H__",
		Fingerprint: fmt.Sprintf("%016x", res.Fingerprint),
	}
	for _, mc := range res.Messages {
		data.Messages = append(data.Messages, newMessageView(baseName, mc))
	}

	header := bytes.Buffer{}
	if err := templates.ExecuteTemplate(&header, "header.tmpl", data); err != nil {
		return nil, err
	}
	source := bytes.Buffer{}
	if err := templates.ExecuteTemplate(&source, "source.tmpl", data); err != nil {
		return nil, err
	}

	return []render.File{
		{Name: baseName + ".h", Content: header.Bytes()},
		{Name: baseName + ".c", Content: source.Bytes()},
	}, nil
}

type templateData struct {
	BaseName    string
	HeaderName  string
	Guard       string
	Fingerprint string
	Messages    []messageView
}

type signalView struct {
	Name  string
	CType string
	// Doc holds the " * "-prefixed comment lines describing the signal in
	// the struct doc block.
	Doc []string
}

type messageView struct {
	// RawName is the database message name, used in doc comments.
	RawName string
	// Prefix is base_message, the stem of every generated identifier.
	Prefix string
	// Define and FrameID form the frame id constant.
	Define  string
	FrameID string
	Length  int
	Signals []signalView
	// EncodeLines and DecodeLines are the fully formatted statement lines of
	// the codec bodies.
	EncodeLines []string
	DecodeLines []string
}

func newMessageView(baseName string, mc codec.MessageCodec) messageView {
	prefix := names.Snake(baseName) + "_" + mc.Name
	v := messageView{
		RawName: mc.Message.Name,
		Prefix:  prefix,
		Define:  names.Upper(names.Snake(baseName)) + "_FRAME_ID_" + names.Upper(mc.Name),
		FrameID: fmt.Sprintf("0x%02xU", mc.Message.ID),
		Length:  mc.Message.ByteLength,
	}

	for _, field := range mc.Fields {
		v.Signals = append(v.Signals, signalView{
			Name:  field.Name,
			CType: field.Type.CType(),
			Doc:   signalDoc(field),
		})
	}

	v.EncodeLines = encodeLines(mc)
	v.DecodeLines = decodeLines(mc)
	return v
}

// signalDoc assembles the @param block for one signal from its documentation
// metadata. Absent metadata produces no line.
func signalDoc(field codec.FieldCodec) []string {
	sig := field.Signal
	lines := []string{" * @param " + field.Name}
	if sig.Comment != "" {
		lines = append(lines, " *            "+sig.Comment)
	}
	if sig.Min != 0 || sig.Max != 0 {
		lines = append(lines,
			" *            Minimum: "+formatFloat(sig.Min),
			" *            Maximum: "+formatFloat(sig.Max))
	}
	lines = append(lines,
		" *            Scale: "+formatFloat(sig.Scale),
		" *            Offset: "+formatFloat(sig.Offset))
	if sig.Unit != "" {
		lines = append(lines, " *            Unit: "+sig.Unit)
	}
	return lines
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// encodeLines formats the merged per-byte OR statements. The ops arrive from
// the codec already grouped by ascending byte index.
func encodeLines(mc codec.MessageCodec) []string {
	lines := make([]string, 0, len(mc.EncodeOps()))
	for _, op := range mc.EncodeOps() {
		lines = append(lines, fmt.Sprintf("    dst_p[%d] |= ((src_p->%s %s) & 0x%02x);",
			op.ByteIndex, op.Field, shiftExpr(op.Shift), op.Mask))
	}
	return lines
}

// decodeLines formats the per-signal accumulate statements followed by the
// sign extension conditional for signed signals narrower than their storage.
func decodeLines(mc codec.MessageCodec) []string {
	var lines []string
	for _, field := range mc.Fields {
		for _, seg := range field.Segments {
			lines = append(lines, fmt.Sprintf("    dst_p->%s |= ((uint%d_t)(src_p[%d] & 0x%02x) %s);",
				field.Name, field.Type.Width(), seg.ByteIndex, seg.Mask, shiftExpr(seg.DecodeShift)))
		}
		if field.ExtendMask != 0 {
			lines = append(lines,
				"",
				fmt.Sprintf("    if (dst_p->%s & (1 << %d)) {", field.Name, field.SignBit()),
				fmt.Sprintf("        dst_p->%s |= 0x%x;", field.Name, field.ExtendMask),
				"    }",
				"")
		}
	}
	// Drop a trailing blank left by a sign extension block.
	for len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

// shiftExpr renders a signed shift amount in its encode or decode direction:
// positive is a left shift.
func shiftExpr(shift int) string {
	if shift < 0 {
		return fmt.Sprintf(">> %d", -shift)
	}
	return fmt.Sprintf("<< %d", shift)
}
