package export

import "go.uber.org/zap/zapcore"

// Report counts the recoverable problems of one export.
type Report struct {
	SkippedFaces      int // polygons that are not triangles
	DefaultedColors   int // faces written with the default colour
	DefaultedUVs      int // faces written with zero texture coordinates
	DroppedInfluences int // weights naming bones outside the exported subtree
}

// Clean reports whether nothing had to be skipped or substituted.
func (r Report) Clean() bool {
	return r == Report{}
}

// MarshalLogObject implements zapcore.ObjectMarshaler.
func (r Report) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddInt("skipped_faces", r.SkippedFaces)
	enc.AddInt("defaulted_colors", r.DefaultedColors)
	enc.AddInt("defaulted_uvs", r.DefaultedUVs)
	enc.AddInt("dropped_influences", r.DroppedInfluences)
	return nil
}
