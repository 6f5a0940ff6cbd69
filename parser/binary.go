package parser

import (
	"errors"
	"io"
)

// Placeholder replaces a binary attachment inside a packet's Data tree once
// the attachment has been pulled out into its own transport frame.
type Placeholder struct {
	Placeholder bool `json:"_placeholder"`
	Num         int  `json:"num"`
}

// DeconstructPacket replaces every []byte/io.Reader in packet.Data with a
// numbered Placeholder and returns the extracted buffers in order.
func DeconstructPacket(packet *Packet) (pack *Packet, buffers [][]byte) {
	pack = packet
	pack.Data = deconstructValue(packet.Data, &buffers)
	attachments := uint64(len(buffers))
	pack.Attachments = &attachments
	return pack, buffers
}

func deconstructValue(data any, buffers *[][]byte) any {
	if data == nil {
		return nil
	}
	if IsBinary(data) {
		placeholder := &Placeholder{Placeholder: true, Num: len(*buffers)}
		switch v := data.(type) {
		case []byte:
			*buffers = append(*buffers, v)
		case io.Reader:
			if c, ok := data.(io.Closer); ok {
				defer c.Close()
			}
			b, _ := io.ReadAll(v)
			*buffers = append(*buffers, b)
		}
		return placeholder
	}
	switch v := data.(type) {
	case []any:
		out := make([]any, 0, len(v))
		for _, item := range v {
			out = append(out, deconstructValue(item, buffers))
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, item := range v {
			out[k] = deconstructValue(item, buffers)
		}
		return out
	}
	return data
}

// ReconstructPacket restores a decoded packet's binary attachments from the
// buffers collected while decoding, replacing each Placeholder in place.
func ReconstructPacket(packet *Packet, buffers [][]byte) (*Packet, error) {
	data, err := reconstructValue(packet.Data, buffers)
	if err != nil {
		return nil, err
	}
	packet.Data = data
	packet.Attachments = nil
	return packet, nil
}

func reconstructValue(data any, buffers [][]byte) (any, error) {
	if data == nil {
		return nil, nil
	}
	switch v := data.(type) {
	case *Placeholder:
		if v.Num < 0 || v.Num >= len(buffers) {
			return nil, errors.New("illegal attachments")
		}
		return buffers[v.Num], nil
	case []any:
		out := make([]any, 0, len(v))
		for _, item := range v {
			r, err := reconstructValue(item, buffers)
			if err != nil {
				return nil, err
			}
			out = append(out, r)
		}
		return out, nil
	case map[string]any:
		if isPlaceholder, num := asPlaceholder(v); isPlaceholder {
			if num < 0 || num >= len(buffers) {
				return nil, errors.New("illegal attachments")
			}
			return buffers[num], nil
		}
		out := make(map[string]any, len(v))
		for k, item := range v {
			r, err := reconstructValue(item, buffers)
			if err != nil {
				return nil, err
			}
			out[k] = r
		}
		return out, nil
	}
	return data, nil
}

func asPlaceholder(m map[string]any) (bool, int) {
	flag, ok := m["_placeholder"].(bool)
	if !ok || !flag {
		return false, 0
	}
	switch n := m["num"].(type) {
	case float64:
		return true, int(n)
	case int:
		return true, n
	}
	return true, 0
}
