// Package render converts rendered diagrams between output formats.
//
// Diagrams are produced as SVG by the [schema] subpackage. [ToPDF] and
// [ToPNG] convert any SVG with the external rsvg-convert tool (from
// librsvg).
//
//	svg, err := schema.RenderSVG(ctx, schema.ToDOT(g, schema.Options{}))
//	pdf, err := render.ToPDF(svg)
//	png, err := render.ToPNG(svg, 2.0)  // 2x scale
//
// [schema]: github.com/matzehuels/neptune-utils/pkg/render/schema
package render
