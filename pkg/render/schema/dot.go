package schema

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/neptune-utils/pkg/errors"
	"github.com/matzehuels/neptune-utils/pkg/render"
)

// Options configures diagram generation.
type Options struct {
	// Detailed lists properties in the boxes and edge counts on arrows.
	// When false, only labels are shown.
	Detailed bool
}

// ToDOT converts the label graph to Graphviz DOT.
func ToDOT(g *Graph, opts Options) string {
	var buf bytes.Buffer
	buf.WriteString("digraph schema {\n")
	buf.WriteString("  rankdir=LR;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=14, margin=\"0.2,0.1\"];\n")
	buf.WriteString("  edge [fontsize=11];\n")
	buf.WriteString("\n")

	for _, v := range g.Vertices {
		fmt.Fprintf(&buf, "  %q [label=%q];\n", v.Label, vertexLabel(v, opts.Detailed))
	}

	buf.WriteString("\n")
	for _, e := range g.Edges {
		fmt.Fprintf(&buf, "  %q -> %q [label=%q];\n", e.From, e.To, edgeLabel(e, opts.Detailed))
	}

	buf.WriteString("}\n")
	return buf.String()
}

func vertexLabel(v Vertex, detailed bool) string {
	if !detailed || len(v.Properties) == 0 {
		return v.Label
	}
	return v.Label + "\n" + joinProperties(v.Properties)
}

func edgeLabel(e Edge, detailed bool) string {
	if !detailed {
		return e.Label
	}
	label := e.Label
	if e.Count > 0 {
		label += " (" + strconv.FormatInt(e.Count, 10) + ")"
	}
	if len(e.Properties) > 0 {
		label += "\n" + joinProperties(e.Properties)
	}
	return label
}

func joinProperties(ps []Property) string {
	parts := make([]string, len(ps))
	for i, p := range ps {
		parts[i] = p.String()
	}
	return strings.Join(parts, "\n")
}

// RenderSVG renders DOT source to SVG.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "init graphviz")
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "parse DOT")
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "render")
	}
	return normalizeViewBox(buf.Bytes()), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// normalizeViewBox replaces the svg tag so the drawing scales from its
// viewBox origin.
func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}

	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}

	tag := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`, w, h, w, h)
	return svgTagRe.ReplaceAll(svg, []byte(tag))
}

// Render renders DOT source in format "svg", "pdf", "png" or "dot".
func Render(ctx context.Context, dot, format string) ([]byte, error) {
	switch format {
	case "dot":
		return []byte(dot), nil
	case "svg", "pdf", "png":
	default:
		return nil, errors.New(errors.ErrCodeInvalidInput, "unknown diagram format %q (want svg, pdf, png or dot)", format)
	}

	svg, err := RenderSVG(ctx, dot)
	if err != nil {
		return nil, err
	}
	switch format {
	case "pdf":
		return render.ToPDF(svg)
	case "png":
		return render.ToPNG(svg, 2.0)
	}
	return svg, nil
}
