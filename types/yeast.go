package types

import (
	"strings"
	"sync"
	"time"
)

const yeastAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-_"

// Yeast produces short, monotonically-friendly, base64-like timestamp ids
// (the same scheme engine.io uses for its protocol ids), used here as one
// ingredient of Base64Id generation.
type Yeast struct {
	mu       sync.Mutex
	prev     string
	seed     int64
	alphabet [64]byte
	indexOf  map[byte]int64
}

func NewYeast() *Yeast {
	y := &Yeast{}
	copy(y.alphabet[:], yeastAlphabet)
	y.indexOf = make(map[byte]int64, 64)
	for i := 0; i < 64; i++ {
		y.indexOf[yeastAlphabet[i]] = int64(i)
	}
	return y
}

func (y *Yeast) Encode(num int64) string {
	if num == 0 {
		return string(y.alphabet[0])
	}
	var b strings.Builder
	for num > 0 {
		b.WriteByte(y.alphabet[num%64])
		num /= 64
	}
	s := b.String()
	runes := []byte(s)
	for i, j := 0, len(runes)-1; i < j; i, j = i+1, j-1 {
		runes[i], runes[j] = runes[j], runes[i]
	}
	return string(runes)
}

func (y *Yeast) Decode(str string) int64 {
	var num int64
	for i := 0; i < len(str); i++ {
		num = num*64 + y.indexOf[str[i]]
	}
	return num
}

// Yeast returns a new id, guaranteed distinct from the previously returned
// one even when called within the same millisecond.
func (y *Yeast) Yeast() string {
	y.mu.Lock()
	defer y.mu.Unlock()

	now := y.Encode(time.Now().UnixMilli())
	if now != y.prev {
		y.seed = 0
		y.prev = now
		return now
	}
	y.seed++
	return now + "." + y.Encode(y.seed)
}
