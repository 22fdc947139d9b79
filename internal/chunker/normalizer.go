package chunker

// Normalize maps raw segments 1:1 onto fully populated segments. Missing or empty fields fall back
// to the document title (or UntitledSection), ChunkTypeConcept and empty tag lists.
func Normalize(raw []RawSegment, meta DocumentMeta) []NormalizedSegment {
	defaultTitle := meta.Title
	if defaultTitle == "" {
		defaultTitle = UntitledSection
	}

	out := make([]NormalizedSegment, 0, len(raw))
	for _, seg := range raw {
		n := NormalizedSegment{
			Text:      seg.Text,
			Title:     defaultTitle,
			ChunkType: ChunkTypeConcept,
			Programs:  []string{},
			Topics:    []string{},
		}
		if !seg.Bare {
			if seg.Title != nil && *seg.Title != "" {
				n.Title = *seg.Title
			}
			if seg.ChunkType != nil && *seg.ChunkType != "" {
				n.ChunkType = *seg.ChunkType
			}
			if seg.Programs != nil {
				n.Programs = append(n.Programs, seg.Programs...)
			}
			if seg.Topics != nil {
				n.Topics = append(n.Topics, seg.Topics...)
			}
		}
		out = append(out, n)
	}
	return out
}

// Renormalize runs already normalized segments through Normalize again. The result equals the
// input.
func Renormalize(segs []NormalizedSegment, meta DocumentMeta) []NormalizedSegment {
	raw := make([]RawSegment, len(segs))
	for i, s := range segs {
		raw[i] = s.Raw()
	}
	return Normalize(raw, meta)
}
