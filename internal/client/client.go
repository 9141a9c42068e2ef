// Package client implements the operator-facing command set on top of the
// framer and codec, including the chunked upload engine.
package client

import (
	"fmt"
	"time"

	"smpctl/internal/config"
	"smpctl/internal/frame"
	"smpctl/internal/smp"
	"smpctl/internal/uart"
	"smpctl/internal/util"
)

// Link is the byte transport a Client drives. One Client owns its Link
// exclusively from Dial to Close.
type Link interface {
	Send(b []byte) error
	ReceiveLine(timeout time.Duration) ([]byte, error)
	Close() error
}

// Client runs management commands against one device over one serial
// session. Not safe for concurrent use; commands are fully synchronous.
type Client struct {
	link  Link
	specs config.Specs
	seq   uint8
}

// Dial opens the configured serial device and returns a Client owning it.
func Dial(specs config.Specs) (*Client, error) {
	link, err := uart.Open(specs.Device, specs.Baudrate)
	if err != nil {
		return nil, err
	}
	return New(link, specs), nil
}

// New wraps an already-open link. The Client takes ownership of it.
func New(link Link, specs config.Specs) *Client {
	return &Client{link: link, specs: specs}
}

// Close releases the underlying link.
func (c *Client) Close() error {
	return c.link.Close()
}

func (c *Client) nextSeq() uint8 {
	s := c.seq
	c.seq++ // wraps at 256
	return s
}

// buildRequest encodes one request packet under a fresh sequence id.
func (c *Client) buildRequest(op uint8, group uint16, id uint8, body any) ([]byte, uint8, error) {
	seq := c.nextSeq()
	pkt, err := smp.EncodeRequest(op, group, id, seq, body)
	if err != nil {
		return nil, 0, err
	}
	return pkt, seq, nil
}

// transact sends an already-encoded request and collects one response.
// Calling it again with the same packet resends identical bytes, which is
// what the upload retry path requires.
func (c *Client) transact(pkt []byte, op uint8, seq uint8, group uint16, id uint8, timeout time.Duration, out any) error {
	if err := c.sendPacket(pkt, seq); err != nil {
		return err
	}
	return c.receiveResponse(op, seq, group, id, timeout, out)
}

// sendPacket frames one encoded request and writes it to the line.
func (c *Client) sendPacket(pkt []byte, seq uint8) error {
	lines, err := frame.Encode(pkt, c.specs.LineLength)
	if err != nil {
		return err
	}
	if config.Verbose {
		config.Debugf("-> %d byte packet, %d lines, seq %d\n%s", len(pkt), len(lines), seq, util.HexDump(pkt))
	}
	for _, line := range lines {
		if err := c.link.Send(line); err != nil {
			return err
		}
	}
	return nil
}

// receiveResponse collects one response frame and validates it against
// the request in flight.
func (c *Client) receiveResponse(op uint8, seq uint8, group uint16, id uint8, timeout time.Duration, out any) error {
	dec := frame.NewDecoder()
	for !dec.Done() {
		line, err := c.link.ReceiveLine(timeout)
		if err != nil {
			return err
		}
		if err := dec.Feed(line); err != nil {
			return err
		}
	}
	rsp, err := dec.Packet()
	if err != nil {
		return err
	}
	if config.Verbose {
		config.Debugf("<- %d byte packet\n%s", len(rsp), util.HexDump(rsp))
	}
	return smp.DecodeResponse(rsp, smp.ResponseOp(op), seq, group, id, out)
}

// exchange runs one single-shot request/response. Simple commands have no
// retry policy; errors propagate as-is.
func (c *Client) exchange(op uint8, group uint16, id uint8, body any, out any) error {
	pkt, seq, err := c.buildRequest(op, group, id, body)
	if err != nil {
		return err
	}
	return c.transact(pkt, op, seq, group, id, c.specs.SubsequentTimeout, out)
}

// List returns the installed firmware slots in device-reported order.
func (c *Client) List() ([]smp.ImageSlot, error) {
	var rsp smp.ImageStateResponse
	err := c.exchange(smp.OpReadReq, smp.GroupImage, smp.CmdImageState, smp.ImageStateRequest{}, &rsp)
	if err != nil {
		return nil, err
	}
	return rsp.Images, nil
}

// Erase erases a slot. A nil slot lets the device pick its inactive slot.
func (c *Client) Erase(slot *uint32) error {
	return c.exchange(smp.OpWriteReq, smp.GroupImage, smp.CmdImageErase, smp.ImageEraseRequest{Slot: slot}, nil)
}

// Test marks the image with the given hash as pending a trial boot, or as
// permanently active when confirm is true. A nil confirm means false.
func (c *Client) Test(hash []byte, confirm *bool) error {
	if len(hash) != 32 {
		return &ValidationError{Reason: fmt.Sprintf("image hash must be 32 bytes, got %d", len(hash))}
	}
	req := smp.ImageTestRequest{Hash: hash}
	if confirm != nil {
		req.Confirm = *confirm
	}
	return c.exchange(smp.OpWriteReq, smp.GroupImage, smp.CmdImageState, req, nil)
}

// Reset reboots the device. The device typically resets before its
// response makes it out, and on USB-CDC lines the port drops with it, so
// any receive failure after a successful send is treated as success.
// Only failures before the request is fully on the wire are errors.
func (c *Client) Reset() error {
	pkt, seq, err := c.buildRequest(smp.OpWriteReq, smp.GroupOS, smp.CmdOSReset, smp.ResetRequest{})
	if err != nil {
		return err
	}
	if err := c.sendPacket(pkt, seq); err != nil {
		return err
	}
	if err := c.receiveResponse(smp.OpWriteReq, seq, smp.GroupOS, smp.CmdOSReset, c.specs.SubsequentTimeout, nil); err != nil {
		config.Debugf("no reset response (%v); device is rebooting", err)
	}
	return nil
}
