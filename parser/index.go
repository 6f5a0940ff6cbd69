package parser

import "sync"

// Protocol is the socket.io wire protocol version this parser implements.
const Protocol = 5

// binaryreconstructor accumulates a BINARY_EVENT/BINARY_ACK packet's
// attachments as they arrive, producing the completed Packet once the last
// one lands.
type binaryreconstructor struct {
	buffers   [][]byte
	reconPack *Packet

	mu sync.Mutex
}

func NewBinaryReconstructor(packet *Packet) *binaryreconstructor {
	return &binaryreconstructor{reconPack: packet}
}

// takeBinaryData records the next attachment, returning the reconstructed
// packet once every attachment it declared has arrived.
func (b *binaryreconstructor) takeBinaryData(binData []byte) (*Packet, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.reconPack == nil {
		return nil, nil
	}

	b.buffers = append(b.buffers, binData)

	if attachments := b.reconPack.Attachments; attachments != nil && uint64(len(b.buffers)) == *attachments {
		packet, err := ReconstructPacket(b.reconPack, b.buffers)
		if err != nil {
			return nil, err
		}
		b.reconPack = nil
		b.buffers = nil
		return packet, nil
	}
	return nil, nil
}

// finishedReconstruction abandons an in-progress reconstruction.
func (b *binaryreconstructor) finishedReconstruction() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.reconPack = nil
	b.buffers = nil
}
