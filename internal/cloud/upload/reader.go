package upload

import (
	"io"
	"sync/atomic"
)

// progressReader counts bytes read from an io.ReadSeeker and reports the
// fraction read. Seeking (SDK or HTTP retries rewinding the body) moves the
// count with the offset; the session clamps so progress never goes back.
type progressReader struct {
	r        io.ReadSeeker
	size     int64
	read     atomic.Int64
	callback func(float64)
}

func newProgressReader(r io.ReadSeeker, size int64, callback func(float64)) *progressReader {
	return &progressReader{r: r, size: size, callback: callback}
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		total := p.read.Add(int64(n))
		if p.size > 0 && p.callback != nil {
			p.callback(float64(total) / float64(p.size))
		}
	}
	return n, err
}

func (p *progressReader) Seek(offset int64, whence int) (int64, error) {
	pos, err := p.r.Seek(offset, whence)
	if err == nil {
		p.read.Store(pos)
	}
	return pos, err
}

// BytesRead returns the current read offset.
func (p *progressReader) BytesRead() int64 {
	return p.read.Load()
}
