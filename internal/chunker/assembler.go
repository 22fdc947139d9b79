package chunker

import "github.com/google/uuid"

// Assembly defaults.
const (
	DefaultVersion     = "M3 Cloud"
	DefaultModule      = "Finance"
	DefaultClientScope = "global"
)

// AssembleOptions carries the profile-dependent fields of a chunk.
type AssembleOptions struct {
	Bucket            string
	Confidence        string
	IncludeChunkCount bool
	Module            []string
	Version           string

	// IDFunc generates chunk ids. Defaults to random UUIDs.
	IDFunc func() string
}

func newID() string {
	return uuid.New().String()
}

// Assemble turns merged segments into final chunks, 1:1 and in order.
func Assemble(merged []NormalizedSegment, meta DocumentMeta, opts AssembleOptions) []Chunk {
	idFunc := opts.IDFunc
	if idFunc == nil {
		idFunc = newID
	}
	version := opts.Version
	if version == "" {
		version = DefaultVersion
	}
	module := opts.Module
	if len(module) == 0 {
		module = []string{DefaultModule}
	}

	docTitle := meta.Title
	if docTitle == "" {
		docTitle = UntitledDocument
	}
	documentID := meta.File
	if documentID == "" {
		documentID = UnknownDocument
	}

	total := len(merged)
	chunks := make([]Chunk, 0, total)
	for i, seg := range merged {
		c := Chunk{
			ID:               idFunc(),
			Bucket:           opts.Bucket,
			ChunkType:        seg.ChunkType,
			Title:            AssignTitle(docTitle, seg.Title, i, total),
			OriginalDocTitle: docTitle,
			Source: ChunkSource{
				DocumentID: documentID,
				Section:    seg.Title,
				Version:    version,
				URL:        meta.URL,
			},
			Content: ChunkContent{
				Text:  seg.Text,
				Steps: []string{},
			},
			Tags: ChunkTags{
				Module:      append([]string{}, module...),
				Programs:    nonNil(seg.Programs),
				Topics:      nonNil(seg.Topics),
				ClientScope: DefaultClientScope,
				Confidence:  opts.Confidence,
			},
			ChunkIndex:  i,
			ChunkTokens: EstimateTokens(seg.Text),
		}
		if opts.IncludeChunkCount {
			count := total
			c.ChunkCount = &count
		}
		chunks = append(chunks, c)
	}
	return chunks
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
