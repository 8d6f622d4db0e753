package bitset

import (
	"encoding/binary"
	"math/bits"
	"sync/atomic"
)

const (
	// DefaultPageWords is the number of uint64 words in a page.
	// 1024 words * 64 bits = 65536 bits per page.
	DefaultPageWords = 1024

	wordBits = 64
)

type page []atomic.Uint64

// Paged is a thread-safe, lock-free, fixed-length bit store.
//
// Bits are packed little-endian into uint64 words: bit i lives in word i/64 at
// position i%64, so serializing the words little-endian yields the byte image
// where byte 0 holds bits 0-7.
type Paged struct {
	size      uint64
	words     uint64
	pageWords uint64
	pages     []atomic.Pointer[page]
}

// New creates a Paged store holding size bits with the default page size.
func New(size uint64) *Paged {
	return NewWithPageWords(size, DefaultPageWords)
}

// NewWithPageWords creates a Paged store holding size bits, grouping words in
// pages of pageWords words. Small stores get a single page sized to fit.
func NewWithPageWords(size, pageWords uint64) *Paged {
	words := (size + wordBits - 1) / wordBits
	if pageWords == 0 {
		pageWords = DefaultPageWords
	}
	if words > 0 && words < pageWords {
		pageWords = words
	}

	numPages := uint64(0)
	if words > 0 {
		numPages = (words + pageWords - 1) / pageWords
	}

	return &Paged{
		size:      size,
		words:     words,
		pageWords: pageWords,
		pages:     make([]atomic.Pointer[page], numPages),
	}
}

// Len returns the size of the store in bits.
func (p *Paged) Len() uint64 {
	return p.size
}

// page returns the page at idx, allocating it when create is set.
func (p *Paged) page(idx uint64, create bool) *page {
	pg := p.pages[idx].Load()
	if pg != nil || !create {
		return pg
	}

	n := p.pageWords
	if rem := p.words - idx*p.pageWords; rem < n {
		n = rem
	}
	fresh := make(page, n)

	// Losing the race means another writer installed the page first.
	if p.pages[idx].CompareAndSwap(nil, &fresh) {
		return &fresh
	}
	return p.pages[idx].Load()
}

func (p *Paged) locate(i uint64) (pageIdx, wordIdx, mask uint64) {
	w := i / wordBits
	return w / p.pageWords, w % p.pageWords, uint64(1) << (i % wordBits)
}

// Set sets the bit at the given index. Out-of-range indexes are ignored.
func (p *Paged) Set(i uint64) {
	if i >= p.size {
		return
	}
	pi, wi, mask := p.locate(i)
	pg := p.page(pi, true)
	(*pg)[wi].Or(mask)
}

// Unset clears the bit at the given index.
func (p *Paged) Unset(i uint64) {
	if i >= p.size {
		return
	}
	pi, wi, mask := p.locate(i)
	pg := p.page(pi, false)
	if pg == nil {
		return
	}
	(*pg)[wi].And(^mask)
}

// Test returns true if the bit at the given index is set.
func (p *Paged) Test(i uint64) bool {
	if i >= p.size {
		return false
	}
	pi, wi, mask := p.locate(i)
	pg := p.page(pi, false)
	if pg == nil {
		return false
	}
	return (*pg)[wi].Load()&mask != 0
}

// Word returns the w-th word of the store (zero for unallocated pages).
func (p *Paged) Word(w uint64) uint64 {
	if w >= p.words {
		return 0
	}
	pg := p.page(w/p.pageWords, false)
	if pg == nil {
		return 0
	}
	return (*pg)[w%p.pageWords].Load()
}

// OrWord ORs v into the w-th word.
func (p *Paged) OrWord(w, v uint64) {
	if w >= p.words || v == 0 {
		return
	}
	pg := p.page(w/p.pageWords, true)
	(*pg)[w%p.pageWords].Or(v)
}

// NextSetBit returns the index of the next set bit starting from i (inclusive).
// Returns -1 if no bit is set at or after i.
func (p *Paged) NextSetBit(i uint64) int64 {
	if i >= p.size {
		return -1
	}

	w := i / wordBits
	pi := w / p.pageWords

	// 1. The word containing i, masked below i.
	if pg := p.page(pi, false); pg != nil {
		val := (*pg)[w%p.pageWords].Load() &^ ((uint64(1) << (i % wordBits)) - 1)
		if val != 0 {
			return int64(w*wordBits + uint64(bits.TrailingZeros64(val)))
		}
	}
	w++

	// 2. Remaining words, skipping whole unallocated pages.
	for w < p.words {
		pi = w / p.pageWords
		pg := p.page(pi, false)
		if pg == nil {
			w = (pi + 1) * p.pageWords
			continue
		}
		for wi := w % p.pageWords; wi < uint64(len(*pg)); wi++ {
			if val := (*pg)[wi].Load(); val != 0 {
				return int64((pi*p.pageWords+wi)*wordBits + uint64(bits.TrailingZeros64(val)))
			}
		}
		w = (pi + 1) * p.pageWords
	}

	return -1
}

// Count returns the number of set bits.
func (p *Paged) Count() uint64 {
	var count uint64
	for i := range p.pages {
		pg := p.pages[i].Load()
		if pg == nil {
			continue
		}
		for w := range *pg {
			if val := (*pg)[w].Load(); val != 0 {
				count += uint64(bits.OnesCount64(val))
			}
		}
	}
	return count
}

// Any reports whether at least one bit is set.
func (p *Paged) Any() bool {
	for i := range p.pages {
		pg := p.pages[i].Load()
		if pg == nil {
			continue
		}
		for w := range *pg {
			if (*pg)[w].Load() != 0 {
				return true
			}
		}
	}
	return false
}

// ClearAll clears all bits. Pages stay allocated.
func (p *Paged) ClearAll() {
	for i := range p.pages {
		pg := p.pages[i].Load()
		if pg == nil {
			continue
		}
		for w := range *pg {
			(*pg)[w].Store(0)
		}
	}
}

// Clone returns an independent copy. Only allocated pages are copied.
func (p *Paged) Clone() *Paged {
	c := &Paged{
		size:      p.size,
		words:     p.words,
		pageWords: p.pageWords,
		pages:     make([]atomic.Pointer[page], len(p.pages)),
	}
	for i := range p.pages {
		pg := p.pages[i].Load()
		if pg == nil {
			continue
		}
		cp := make(page, len(*pg))
		for w := range *pg {
			cp[w].Store((*pg)[w].Load())
		}
		c.pages[i].Store(&cp)
	}
	return c
}

// AppendBytes appends n bytes of the little-endian byte image starting at
// byte offset off. Bytes past the end of the store are zero.
func (p *Paged) AppendBytes(dst []byte, off, n uint64) []byte {
	var word uint64
	cur := ^uint64(0)
	for b := off; b < off+n; b++ {
		if w := b / 8; w != cur {
			cur = w
			word = p.Word(w)
		}
		dst = append(dst, byte(word>>((b%8)*8)))
	}
	return dst
}

// LoadBytes ORs a little-endian byte image into the store, starting at bit 0.
// Bytes past the end of the store are ignored.
func (p *Paged) LoadBytes(buf []byte) {
	var tmp [8]byte
	for w := uint64(0); w < p.words && w*8 < uint64(len(buf)); w++ {
		chunk := buf[w*8:]
		if len(chunk) < 8 {
			tmp = [8]byte{}
			copy(tmp[:], chunk)
			chunk = tmp[:]
		}
		p.OrWord(w, binary.LittleEndian.Uint64(chunk))
	}
}
