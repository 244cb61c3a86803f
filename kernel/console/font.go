package console

// glyphBlock is drawn for any byte with no entry in glyphs.
var glyphBlock = [glyphHeight]byte{
	0x00, 0x7e, 0x7e, 0x7e, 0x7e, 0x7e, 0x7e, 0x00,
}

// glyphs is a small 8x8 bitmap font covering digits, uppercase letters and
// a handful of punctuation marks. Lowercase letters reuse their uppercase
// glyph; sharkos never needs case-sensitive rendering for kernel
// diagnostics. Bytes with no entry, including some that sharkos's own
// diagnostics print ('[', ']', '*', '='), are drawn as glyphBlock.
//
// Unlike the teacher's font package, which loads a full font table picked
// by a hardware probe, this table is small and fixed: there is exactly one
// framebuffer console and no font selection.
var glyphs = map[byte][glyphHeight]byte{
	' ': {0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00},
	'.': {0x00, 0x00, 0x00, 0x00, 0x00, 0x18, 0x18, 0x00},
	',': {0x00, 0x00, 0x00, 0x00, 0x00, 0x18, 0x18, 0x30},
	':': {0x00, 0x18, 0x18, 0x00, 0x00, 0x18, 0x18, 0x00},
	'-': {0x00, 0x00, 0x00, 0x7e, 0x7e, 0x00, 0x00, 0x00},
	'_': {0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0xff},
	'%': {0xc6, 0xcc, 0x18, 0x30, 0x60, 0xcc, 0xc6, 0x00},
	'(': {0x0c, 0x18, 0x30, 0x30, 0x30, 0x18, 0x0c, 0x00},
	')': {0x30, 0x18, 0x0c, 0x0c, 0x0c, 0x18, 0x30, 0x00},
	'!': {0x18, 0x18, 0x18, 0x18, 0x18, 0x00, 0x18, 0x00},
	'?': {0x7c, 0xc6, 0x0c, 0x18, 0x18, 0x00, 0x18, 0x00},
	'/': {0x06, 0x0c, 0x18, 0x30, 0x60, 0xc0, 0x80, 0x00},

	'0': {0x7c, 0xc6, 0xce, 0xd6, 0xe6, 0xc6, 0x7c, 0x00},
	'1': {0x18, 0x38, 0x18, 0x18, 0x18, 0x18, 0x7e, 0x00},
	'2': {0x7c, 0xc6, 0x06, 0x1c, 0x70, 0xc0, 0xfe, 0x00},
	'3': {0x7c, 0xc6, 0x06, 0x3c, 0x06, 0xc6, 0x7c, 0x00},
	'4': {0x1c, 0x3c, 0x6c, 0xcc, 0xfe, 0x0c, 0x1e, 0x00},
	'5': {0xfe, 0xc0, 0xfc, 0x06, 0x06, 0xc6, 0x7c, 0x00},
	'6': {0x3c, 0x60, 0xc0, 0xfc, 0xc6, 0xc6, 0x7c, 0x00},
	'7': {0xfe, 0xc6, 0x0c, 0x18, 0x30, 0x30, 0x30, 0x00},
	'8': {0x7c, 0xc6, 0xc6, 0x7c, 0xc6, 0xc6, 0x7c, 0x00},
	'9': {0x7c, 0xc6, 0xc6, 0x7e, 0x06, 0x0c, 0x78, 0x00},

	'A': {0x38, 0x6c, 0xc6, 0xc6, 0xfe, 0xc6, 0xc6, 0x00},
	'B': {0xfc, 0xc6, 0xc6, 0xfc, 0xc6, 0xc6, 0xfc, 0x00},
	'C': {0x3c, 0x66, 0xc0, 0xc0, 0xc0, 0x66, 0x3c, 0x00},
	'D': {0xf8, 0xcc, 0xc6, 0xc6, 0xc6, 0xcc, 0xf8, 0x00},
	'E': {0xfe, 0xc0, 0xc0, 0xf8, 0xc0, 0xc0, 0xfe, 0x00},
	'F': {0xfe, 0xc0, 0xc0, 0xf8, 0xc0, 0xc0, 0xc0, 0x00},
	'G': {0x3c, 0x66, 0xc0, 0xce, 0xc6, 0x66, 0x3e, 0x00},
	'H': {0xc6, 0xc6, 0xc6, 0xfe, 0xc6, 0xc6, 0xc6, 0x00},
	'I': {0x7e, 0x18, 0x18, 0x18, 0x18, 0x18, 0x7e, 0x00},
	'J': {0x06, 0x06, 0x06, 0x06, 0xc6, 0xc6, 0x7c, 0x00},
	'K': {0xc6, 0xcc, 0xd8, 0xf0, 0xd8, 0xcc, 0xc6, 0x00},
	'L': {0xc0, 0xc0, 0xc0, 0xc0, 0xc0, 0xc0, 0xfe, 0x00},
	'M': {0xc6, 0xee, 0xfe, 0xd6, 0xc6, 0xc6, 0xc6, 0x00},
	'N': {0xc6, 0xe6, 0xf6, 0xde, 0xce, 0xc6, 0xc6, 0x00},
	'O': {0x7c, 0xc6, 0xc6, 0xc6, 0xc6, 0xc6, 0x7c, 0x00},
	'P': {0xfc, 0xc6, 0xc6, 0xfc, 0xc0, 0xc0, 0xc0, 0x00},
	'Q': {0x7c, 0xc6, 0xc6, 0xc6, 0xd6, 0xcc, 0x7a, 0x00},
	'R': {0xfc, 0xc6, 0xc6, 0xfc, 0xd8, 0xcc, 0xc6, 0x00},
	'S': {0x7c, 0xc6, 0x60, 0x38, 0x0c, 0xc6, 0x7c, 0x00},
	'T': {0x7e, 0x18, 0x18, 0x18, 0x18, 0x18, 0x18, 0x00},
	'U': {0xc6, 0xc6, 0xc6, 0xc6, 0xc6, 0xc6, 0x7c, 0x00},
	'V': {0xc6, 0xc6, 0xc6, 0xc6, 0xc6, 0x6c, 0x38, 0x00},
	'W': {0xc6, 0xc6, 0xc6, 0xd6, 0xfe, 0xee, 0xc6, 0x00},
	'X': {0xc6, 0xc6, 0x6c, 0x38, 0x6c, 0xc6, 0xc6, 0x00},
	'Y': {0xc6, 0xc6, 0x6c, 0x38, 0x18, 0x18, 0x18, 0x00},
	'Z': {0xfe, 0x0c, 0x18, 0x30, 0x60, 0xc0, 0xfe, 0x00},
}

func init() {
	for _, r := range "abcdefghijklmnopqrstuvwxyz" {
		glyphs[byte(r)] = glyphs[byte(r-'a'+'A')]
	}
}
