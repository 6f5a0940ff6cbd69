package parser

// Parser is a factory for a matched Encoder/Decoder pair. The socket
// package's Server holds one parser.Parser; each Client and each
// namespace's Adapter build their Encoder/Decoder from it.
type Parser interface {
	Encoder() Encoder
	Decoder() Decoder
}

type parser struct{}

func (p *parser) Encoder() Encoder {
	return NewEncoder()
}

func (p *parser) Decoder() Decoder {
	return NewDecoder()
}

func NewParser() Parser {
	return &parser{}
}
