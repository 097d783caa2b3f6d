package source

import (
	"crypto/sha256"
	"fmt"
	"os"

	"fortio.org/safecast"
)

// FileSet owns the files a compilation unit was built from.
// FileID 0 is reserved so the zero Span never points into a real file.
type FileSet struct {
	files []File
	index map[string]FileID // path -> latest id
}

func NewFileSet() *FileSet {
	return &FileSet{
		files: make([]File, 1, 8),
		index: make(map[string]FileID),
	}
}

// Add stores a file from normalized bytes, computes LineIdx and Hash, and returns a new FileID.
// It always creates a new FileID even if a file with the same path already exists.
func (fileSet *FileSet) Add(path string, content []byte, flags FileFlags) FileID {
	n, err := safecast.Conv[uint32](len(fileSet.files))
	if err != nil {
		panic(fmt.Errorf("len files overflow: %w", err))
	}
	id := FileID(n)
	normalizedPath := normalizePath(path)
	fileSet.files = append(fileSet.files, File{
		ID:      id,
		Path:    normalizedPath,
		Content: content,
		LineIdx: buildLineIndex(content),
		Hash:    sha256.Sum256(content),
		Flags:   flags,
	})
	fileSet.index[normalizedPath] = id
	return id
}

// Load reads a file from disk, normalizes CRLF/BOM, and calls Add.
func (fileSet *FileSet) Load(path string) (FileID, error) {
	// #nosec G304 -- path is provided by the caller
	content, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}

	content, hadBOM := removeBOM(content)
	content, hadCRLF := normalizeCRLF(content)

	flags := FileFlags(0)
	if hadBOM {
		flags |= FileHadBOM
	}
	if hadCRLF {
		flags |= FileNormalizedCRLF
	}
	return fileSet.Add(path, content, flags), nil
}

// AddVirtual adds a virtual file (stdin, test, or generated) with the FileVirtual flag.
func (fileSet *FileSet) AddVirtual(name string, content []byte) FileID {
	return fileSet.Add(name, content, FileVirtual)
}

// Get returns the file for id or nil for the sentinel and unknown ids.
func (fileSet *FileSet) Get(id FileID) *File {
	if fileSet == nil || id == 0 || int(id) >= len(fileSet.files) {
		return nil
	}
	return &fileSet.files[id]
}

// GetLatest returns the latest file ID for the given path, if it exists.
func (fileSet *FileSet) GetLatest(path string) (FileID, bool) {
	id, ok := fileSet.index[normalizePath(path)]
	return id, ok
}

// Resolve converts a span into line and column positions.
func (fileSet *FileSet) Resolve(span Span) (start, end LineCol, ok bool) {
	f := fileSet.Get(span.File)
	if f == nil {
		return LineCol{}, LineCol{}, false
	}
	return toLineCol(f.LineIdx, span.Start), toLineCol(f.LineIdx, span.End), true
}

// Offset is the inverse of Resolve for a single position. Positions past the
// end of a line are clamped to the line end.
func (f *File) Offset(pos LineCol) uint32 {
	if pos.Line == 0 {
		return 0
	}
	var start uint32
	if pos.Line > 1 {
		if int(pos.Line-2) >= len(f.LineIdx) {
			return f.contentLen()
		}
		start = f.LineIdx[pos.Line-2] + 1
	}
	end := f.contentLen()
	if int(pos.Line-1) < len(f.LineIdx) {
		end = f.LineIdx[pos.Line-1]
	}
	off := start
	if pos.Col > 0 {
		off += pos.Col - 1
	}
	if off > end {
		off = end
	}
	return off
}

// GetLine returns the 1-based line without its terminator.
func (f *File) GetLine(lineNum uint32) string {
	if lineNum == 0 {
		return ""
	}
	lenContent := f.contentLen()
	var start uint32
	if lineNum > 1 {
		if int(lineNum-2) >= len(f.LineIdx) {
			return ""
		}
		start = f.LineIdx[lineNum-2] + 1
	}
	end := lenContent
	if int(lineNum-1) < len(f.LineIdx) {
		end = f.LineIdx[lineNum-1]
	}
	if start >= lenContent {
		return ""
	}
	return string(f.Content[start:end])
}

func (f *File) contentLen() uint32 {
	n, err := safecast.Conv[uint32](len(f.Content))
	if err != nil {
		panic(fmt.Errorf("content length overflow: %w", err))
	}
	return n
}
