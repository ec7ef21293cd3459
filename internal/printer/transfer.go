package printer

import (
	"fmt"

	"github.com/warungpos/print-bridge/internal/ble"
)

// transfer writes payload to the negotiated characteristic in
// chunk-sized slices, strictly in order, pacing with a fixed delay
// between writes so the printer's buffer can drain. A BLE write
// acknowledgment does not mean the printer finished spooling the
// previous chunk.
//
// Write-without-response is used when the characteristic supports it,
// the acknowledged mode otherwise. The first failed write aborts the
// remaining chunks; partial prints are visible on paper and are not
// retried here.
func (s *Session) transfer(writer ble.Characteristic, payload []byte) error {
	useUnacked := writer.Properties().CanWriteWithoutResponse()

	total := len(payload)
	for offset, index := 0, 0; offset < total; index++ {
		if index > 0 {
			s.sleep(s.chunkDelay)
		}

		end := offset + s.chunkSize
		if end > total {
			end = total
		}
		chunk := payload[offset:end]

		var err error
		if useUnacked {
			_, err = writer.WriteWithoutResponse(chunk)
		} else {
			_, err = writer.Write(chunk)
		}
		if err != nil {
			return fmt.Errorf("chunk %d (%d bytes at offset %d): %w", index+1, len(chunk), offset, err)
		}

		printChunks.Inc()
		printBytes.Add(float64(len(chunk)))
		offset = end
	}
	return nil
}
