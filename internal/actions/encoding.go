package actions

import (
	"fmt"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
)

// lookupEncoding возвращает кодировку по имени ("utf-8", "shift_jis", "cp932", "windows-1251").
// Пустое имя означает UTF-8.
func lookupEncoding(name string) (encoding.Encoding, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	switch name {
	case "", "utf-8", "utf8":
		return unicode.UTF8, nil
	case "cp932", "ms932", "sjis":
		name = "shift_jis"
	}

	enc, err := htmlindex.Get(name)
	if err != nil {
		return nil, fmt.Errorf("%w: unknown encoding %q", ErrInvalidParams, name)
	}
	return enc, nil
}

// decodeText переводит байты из кодировки enc в строку UTF-8.
// Невалидные последовательности заменяются символом замены.
func decodeText(data []byte, enc encoding.Encoding) string {
	if enc == unicode.UTF8 {
		return strings.ToValidUTF8(string(data), "�")
	}
	out, err := enc.NewDecoder().Bytes(data)
	if err != nil {
		return strings.ToValidUTF8(string(data), "�")
	}
	return string(out)
}

// encodeText переводит строку UTF-8 в байты кодировки enc.
func encodeText(s string, enc encoding.Encoding) ([]byte, error) {
	if enc == unicode.UTF8 {
		return []byte(s), nil
	}
	out, err := encoding.ReplaceUnsupported(enc.NewEncoder()).Bytes([]byte(s))
	if err != nil {
		return nil, fmt.Errorf("encode text: %w", err)
	}
	return out, nil
}
