package smp

// ImageSlot describes one firmware slot as reported by the image-state
// command. Decoded only; never constructed by callers.
type ImageSlot struct {
	Slot      int    `cbor:"slot" json:"slot"`
	Version   string `cbor:"version" json:"version"`
	Hash      []byte `cbor:"hash" json:"hash"`
	Bootable  bool   `cbor:"bootable" json:"bootable"`
	Pending   bool   `cbor:"pending" json:"pending"`
	Confirmed bool   `cbor:"confirmed" json:"confirmed"`
	Active    bool   `cbor:"active" json:"active"`
	Permanent bool   `cbor:"permanent" json:"permanent"`
}

// ImageStateRequest is the empty body of an image-state read request.
type ImageStateRequest struct{}

// ImageStateResponse is the body of an image-state read response.
type ImageStateResponse struct {
	Images      []ImageSlot `cbor:"images"`
	SplitStatus int         `cbor:"splitStatus"`
}

// ImageTestRequest marks the image with the given hash for a trial boot
// (Confirm false) or as permanently active (Confirm true).
type ImageTestRequest struct {
	Hash    []byte `cbor:"hash"`
	Confirm bool   `cbor:"confirm"`
}

// ImageEraseRequest erases a slot. A nil Slot leaves slot selection to
// the device, which erases its inactive slot.
type ImageEraseRequest struct {
	Slot *uint32 `cbor:"slot,omitempty"`
}

// UploadFirstRequest is the body of the first upload chunk. It carries
// the transfer metadata in addition to the data, so its data budget is
// smaller than that of later chunks.
type UploadFirstRequest struct {
	Image uint8  `cbor:"image"`
	Len   uint64 `cbor:"len"`
	Off   uint64 `cbor:"off"`
	Sha   []byte `cbor:"sha"`
	Data  []byte `cbor:"data"`
}

// UploadNextRequest is the body of every upload chunk after the first.
type UploadNextRequest struct {
	Off  uint64 `cbor:"off"`
	Data []byte `cbor:"data"`
}

// UploadResponse acknowledges an upload chunk. Off is the next offset the
// device expects.
type UploadResponse struct {
	RC  int    `cbor:"rc"`
	Off uint64 `cbor:"off"`
}

// ResetRequest is the empty body of a system reset request.
type ResetRequest struct{}
