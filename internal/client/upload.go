package client

import (
	"crypto/sha256"
	"errors"

	"smpctl/internal/config"
	"smpctl/internal/smp"
	"smpctl/internal/uart"
)

// Reporter receives one progress report per acknowledged chunk, invoked
// synchronously on the calling goroutine. Implementations must return
// quickly; a slow Report delays the next send.
type Reporter interface {
	Report(offset, total uint64)
}

// ReporterFunc adapts a function to the Reporter interface.
type ReporterFunc func(offset, total uint64)

// Report calls f.
func (f ReporterFunc) Report(offset, total uint64) { f(offset, total) }

type noopReporter struct{}

func (noopReporter) Report(offset, total uint64) {}

// uploadSession is the transient state of one transfer. It lives only for
// the duration of the Upload call.
type uploadSession struct {
	image    []byte
	sha      []byte
	slot     uint8
	offset   uint64
	failures int
	attempts int
}

// Upload pushes an image into the target slot in bounded chunks. It
// returns nil only once the device has acknowledged every byte. On
// timeout or a NAK/malformed acknowledgement the identical chunk is
// resent, up to NbRetry times per chunk; framing and desynchronization
// errors abort immediately.
func (c *Client) Upload(image []byte, slot uint8, progress Reporter) error {
	if len(image) == 0 {
		return &ValidationError{Reason: "image is empty"}
	}
	if progress == nil {
		progress = noopReporter{}
	}

	sum := sha256.Sum256(image)
	sess := &uploadSession{
		image: image,
		sha:   sum[:],
		slot:  slot,
	}
	total := uint64(len(image))

	for sess.offset < total {
		chunkLen, pkt, seq, err := c.buildChunk(sess)
		if err != nil {
			return err
		}

		timeout := c.specs.SubsequentTimeout
		if sess.offset == 0 {
			// The device may be erasing flash before the first ack.
			timeout = c.specs.InitialTimeout
		}

		for {
			sess.attempts++
			var ack smp.UploadResponse
			err := c.transact(pkt, smp.OpWriteReq, seq, smp.GroupImage, smp.CmdImageUpload, timeout, &ack)
			if err != nil {
				if !retryable(err) {
					return err
				}
				sess.failures++
				config.Debugf("chunk at offset %d failed (%v), retry %d/%d", sess.offset, err, sess.failures, c.specs.NbRetry)
				if sess.failures > c.specs.NbRetry {
					if errors.Is(err, uart.ErrTimedOut) {
						return &TimeoutError{Offset: sess.offset, Attempts: sess.failures}
					}
					return err
				}
				continue
			}

			want := sess.offset + uint64(chunkLen)
			if ack.Off != want {
				return &OffsetError{Sent: sess.offset, Want: want, Got: ack.Off}
			}
			sess.failures = 0
			sess.offset = want
			progress.Report(sess.offset, total)
			break
		}
	}
	return nil
}

// retryable reports whether an exchange failure may be answered by
// resending the same chunk. Framing errors and protocol mismatches
// indicate a correctness violation and are not retried.
func retryable(err error) bool {
	if errors.Is(err, uart.ErrTimedOut) {
		return true
	}
	var nak *smp.NakError
	if errors.As(err, &nak) {
		return true
	}
	var malformed *smp.MalformedError
	return errors.As(err, &malformed)
}

// buildChunk encodes the upload request for the current offset, shrinking
// the data slice until the whole packet fits within the MTU. The first
// chunk carries the transfer metadata and therefore holds less data.
func (c *Client) buildChunk(sess *uploadSession) (int, []byte, uint8, error) {
	total := uint64(len(sess.image))
	chunkLen := int(total - sess.offset)
	if chunkLen > c.specs.MTU {
		chunkLen = c.specs.MTU
	}

	seq := c.nextSeq()
	for {
		body := c.chunkBody(sess, chunkLen)
		pkt, err := smp.EncodeRequest(smp.OpWriteReq, smp.GroupImage, smp.CmdImageUpload, seq, body)
		if err != nil {
			return 0, nil, 0, err
		}
		over := len(pkt) - c.specs.MTU
		if over <= 0 {
			return chunkLen, pkt, seq, nil
		}
		chunkLen -= over
		if chunkLen < 1 {
			return 0, nil, 0, &ValidationError{Reason: "mtu too small for transfer metadata"}
		}
	}
}

func (c *Client) chunkBody(sess *uploadSession, chunkLen int) any {
	data := sess.image[sess.offset : sess.offset+uint64(chunkLen)]
	if sess.offset == 0 {
		return smp.UploadFirstRequest{
			Image: sess.slot,
			Len:   uint64(len(sess.image)),
			Off:   0,
			Sha:   sess.sha,
			Data:  data,
		}
	}
	return smp.UploadNextRequest{Off: sess.offset, Data: data}
}
