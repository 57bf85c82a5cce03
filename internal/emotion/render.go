package emotion

import "github.com/lucasb-eyer/go-colorful"

// Derive draws the render parameters for an adopted profile.
//
// Draws happen in a fixed order: shade, width, height, opacity, bleed, texture. Fields with a
// fixed range and a profile without shade jitter consume no draw, so a given source always
// produces the same parameters.
func Derive(p Profile, src Source) Render {
	return Render{
		Brush:         p.Brush,
		Color:         shade(p.Color, p.ShadeJitter, src),
		Width:         between(p.Width, src),
		Height:        between(p.Height, src),
		Opacity:       between(p.Opacity, src),
		Bleed:         between(p.Bleed, src),
		Texture:       between(p.Texture, src),
		TextureBorder: p.TextureBorder,
	}
}

// Base returns deterministic parameters for a profile without touching a random source.
// Ranged fields take their midpoint.
func Base(p Profile) Render {
	return Render{
		Brush:         p.Brush,
		Color:         p.Color,
		Width:         p.Width.Mid(),
		Height:        p.Height.Mid(),
		Opacity:       p.Opacity.Mid(),
		Bleed:         p.Bleed.Mid(),
		Texture:       p.Texture.Mid(),
		TextureBorder: p.TextureBorder,
	}
}

// Jitter redraws the per-shape opacity and bleed of r within the ranges of p.
// Every painted shape gets its own values while color, brush and size stay those of the
// adoption.
func Jitter(r Render, p Profile, src Source) Render {
	r.Opacity = between(p.Opacity, src)
	r.Bleed = between(p.Bleed, src)
	return r
}

// shade shifts the HSL lightness of hex by a uniform amount in [-jitter, jitter].
func shade(hex string, jitter float64, src Source) string {
	if jitter <= 0 {
		return hex
	}
	c, err := colorful.Hex(hex)
	if err != nil {
		return hex
	}
	h, s, l := c.Hsl()
	l += (src.Float64()*2 - 1) * jitter
	switch {
	case l < 0:
		l = 0
	case l > 1:
		l = 1
	}
	return colorful.Hsl(h, s, l).Clamped().Hex()
}
