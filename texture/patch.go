package texture

// columnEnd marks the end of a patch column in the flat Posts run, the
// WAD patch format's 0xFF top-delta sentinel.
const columnEnd = 0xff

// Post is one opaque vertical run of pixels within a single patch column.
// A Post with TopDelta == columnEnd instead marks "advance to the next
// column" and carries no pixel data.
type Post struct {
	TopDelta int
	Indices  []byte // palette indices, one per pixel of the run
}

// Patch is a decoded WAD graphic lump (a wall or sprite picture): a flat,
// column-separator-delimited list of posts, mirroring the on-disk format
// (and the reference loader's in-memory shape) directly so the composer
// below can walk it the same way patch_to_surface does.
type Patch struct {
	Width, Height         int
	LeftOffset, TopOffset int
	Posts                 []Post
}

// ToTexture rasterizes the patch alone into a Width x Height Texture,
// applying pal to each post's palette indices. This is the Go analog of
// the reference's patch_to_surface.
func (p *Patch) ToTexture(pal Palette) *Texture {
	t := New(p.Width, p.Height)
	x := 0
	for _, post := range p.Posts {
		if post.TopDelta == columnEnd {
			x++
			continue
		}
		for i, idx := range post.Indices {
			t.set(x, post.TopDelta+i, pal[idx])
		}
	}
	return t
}
