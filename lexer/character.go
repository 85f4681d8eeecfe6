package lexer

// ASCII character classification tables, built once at package init the
// way a hand-rolled lexer keeps its hot path branch-free.
var (
	isDigitASCII      [128]bool
	isIdentStartASCII [128]bool
	isIdentPartASCII  [128]bool
	isSpaceASCII      [128]bool
	singleChar        [128]Token
)

func init() {
	for i := 0; i < 128; i++ {
		ch := byte(i)
		isDigitASCII[i] = ch >= '0' && ch <= '9'
		isIdentStartASCII[i] = (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || ch == '_'
		isIdentPartASCII[i] = isIdentStartASCII[i] || isDigitASCII[i]
		isSpaceASCII[i] = ch == ' ' || ch == '\t' || ch == '\r' || ch == '\n' || ch == '\v' || ch == '\f'
		singleChar[i] = TokIllegal
	}
	singleChar['.'] = TokDot
	singleChar[','] = TokComma
	singleChar[':'] = TokColon
	singleChar['('] = TokOpenParen
	singleChar[')'] = TokCloseParen
	singleChar['['] = TokStartDeref
	singleChar[']'] = TokEndDeref
}

// extendedWhitespace is the 24 explicit UTF-8 whitespace codepoints
// trim-marker boundary scans recognize beyond plain ASCII (spec.md
// §4.1). Full Unicode whitespace normalization is out of scope; this
// is a fixed, explicit set.
var extendedWhitespace = map[rune]bool{
	0x00A0: true, // NO-BREAK SPACE
	0x0085: true, // NEXT LINE
	0x1680: true, // OGHAM SPACE MARK
	0x180E: true, // MONGOLIAN VOWEL SEPARATOR
	0x2000: true, // EN QUAD
	0x2001: true, // EM QUAD
	0x2002: true, // EN SPACE
	0x2003: true, // EM SPACE
	0x2004: true, // THREE-PER-EM SPACE
	0x2005: true, // FOUR-PER-EM SPACE
	0x2006: true, // SIX-PER-EM SPACE
	0x2007: true, // FIGURE SPACE
	0x2008: true, // PUNCTUATION SPACE
	0x2009: true, // THIN SPACE
	0x200A: true, // HAIR SPACE
	0x200B: true, // ZERO WIDTH SPACE
	0x2028: true, // LINE SEPARATOR
	0x2029: true, // PARAGRAPH SEPARATOR
	0x202F: true, // NARROW NO-BREAK SPACE
	0x205F: true, // MEDIUM MATHEMATICAL SPACE
	0x2060: true, // WORD JOINER
	0x3000: true, // IDEOGRAPHIC SPACE
	0x3164: true, // HANGUL FILLER
	0xFEFF: true, // ZERO WIDTH NO-BREAK SPACE
}

func isTrimSpace(r rune) bool {
	if r < 128 {
		return isSpaceASCII[r]
	}
	return extendedWhitespace[r]
}
