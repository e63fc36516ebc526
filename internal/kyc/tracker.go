package kyc

import (
	"errors"
	"fmt"
	"sync"
)

const (
	MsgReady         = "Ready to upload"
	MsgChooseFile    = "Choose a file first."
	MsgUploading     = "Uploading..."
	MsgUploaded      = "Uploaded successfully"
	MsgUploadFailed  = "Upload failed"
	statusMsgPattern = "Status: %s"
)

var (
	// ErrNoFile is returned when an upload is attempted on a slot without a selected file.
	ErrNoFile = errors.New("no file selected")
	// ErrUploadInFlight is returned when the slot already has an outstanding upload.
	ErrUploadInFlight = errors.New("upload already in progress")
	// ErrIncomplete is returned when a submission is requested before every slot has a URL.
	ErrIncomplete = errors.New("documents incomplete")
	// ErrUnknownKind is returned for kinds outside the required set.
	ErrUnknownKind = errors.New("unknown document kind")
)

// SlotState is the lifecycle position of a single document slot.
type SlotState int

const (
	SlotIdle SlotState = iota
	SlotSelected
	SlotUploading
	SlotUploaded
	SlotFailed
)

var slotStateNames = [...]string{"idle", "selected", "uploading", "uploaded", "failed"}

func (s SlotState) String() string {
	if s < 0 || int(s) >= len(slotStateNames) {
		return fmt.Sprintf("SlotState(%d)", int(s))
	}
	return slotStateNames[s]
}

// MarshalText encodes the state name.
func (s SlotState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a state name.
func (s *SlotState) UnmarshalText(text []byte) error {
	for i, name := range slotStateNames {
		if name == string(text) {
			*s = SlotState(i)
			return nil
		}
	}
	return fmt.Errorf("unknown slot state %q", text)
}

// Slot is the upload state of one required document.
type Slot struct {
	Kind      DocumentKind
	State     SlotState
	File      *File
	URL       string
	Uploading bool
	Message   string

	generation uint64
}

// Complete reports whether the slot holds a successfully uploaded document URL.
func (s Slot) Complete() bool {
	return s.URL != ""
}

// Ticket identifies one dispatched upload. A ticket goes stale once the
// slot's file selection changes.
type Ticket struct {
	Kind DocumentKind
	File *File

	generation uint64
}

// Tracker holds one slot per required document kind.
type Tracker struct {
	mu    sync.Mutex
	slots [kindCount]Slot
}

// NewTracker returns a tracker with every slot idle.
func NewTracker() *Tracker {
	t := &Tracker{}
	for _, kind := range Kinds {
		t.slots[kind] = Slot{Kind: kind, State: SlotIdle}
	}
	return t
}

// Select records the chosen file for kind. A new file invalidates any URL
// from a previous upload and any upload still in flight. A nil file clears the
// selection but keeps an already uploaded URL.
func (t *Tracker) Select(kind DocumentKind, file *File) (Slot, error) {
	if !kind.Valid() {
		return Slot{}, ErrUnknownKind
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	slot := &t.slots[kind]
	slot.generation++
	slot.Uploading = false
	if file == nil {
		slot.File = nil
		slot.Message = ""
		if slot.URL != "" {
			slot.State = SlotUploaded
		} else {
			slot.State = SlotIdle
		}
		return *slot, nil
	}

	slot.File = file
	slot.URL = ""
	slot.Message = MsgReady
	slot.State = SlotSelected
	return *slot, nil
}

// Begin marks the slot as uploading and returns a ticket for the dispatched
// request.
func (t *Tracker) Begin(kind DocumentKind) (Ticket, error) {
	if !kind.Valid() {
		return Ticket{}, ErrUnknownKind
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	slot := &t.slots[kind]
	if slot.File == nil {
		slot.Message = MsgChooseFile
		return Ticket{}, ErrNoFile
	}
	if slot.Uploading {
		return Ticket{}, ErrUploadInFlight
	}
	slot.Uploading = true
	slot.State = SlotUploading
	slot.Message = MsgUploading
	return Ticket{Kind: kind, File: slot.File, generation: slot.generation}, nil
}

// Finish applies a successful upload response. It returns false and leaves
// the slot untouched when the ticket is stale.
func (t *Tracker) Finish(ticket Ticket, url, status string) (Slot, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	slot := &t.slots[ticket.Kind]
	if slot.generation != ticket.generation {
		return *slot, false
	}
	slot.Uploading = false
	slot.URL = url
	if status != "" {
		slot.Message = fmt.Sprintf(statusMsgPattern, status)
	} else {
		slot.Message = MsgUploaded
	}
	if url != "" {
		slot.State = SlotUploaded
	} else {
		slot.State = SlotSelected
	}
	return *slot, true
}

// Fail applies an upload failure. The selected file is kept so the user can
// retry. Stale tickets are ignored.
func (t *Tracker) Fail(ticket Ticket, message string) (Slot, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	slot := &t.slots[ticket.Kind]
	if slot.generation != ticket.generation {
		return *slot, false
	}
	if message == "" {
		message = MsgUploadFailed
	}
	slot.Uploading = false
	slot.State = SlotFailed
	slot.Message = message
	return *slot, true
}

// Slot returns a copy of the slot for kind.
func (t *Tracker) Slot(kind DocumentKind) Slot {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !kind.Valid() {
		return Slot{Kind: kind}
	}
	return t.slots[kind]
}

// Slots returns a copy of every slot in display order.
func (t *Tracker) Slots() [len(Kinds)]Slot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.slots
}

// Ready reports whether every required slot has an uploaded URL.
func (t *Tracker) Ready() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, slot := range t.slots {
		if !slot.Complete() {
			return false
		}
	}
	return true
}

// Submission builds the payload for the submit call from the uploaded URLs.
func (t *Tracker) Submission(meta Metadata) (Submission, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, slot := range t.slots {
		if !slot.Complete() {
			return Submission{}, ErrIncomplete
		}
	}
	return Submission{
		AadhaarFrontURL: t.slots[AadhaarFront].URL,
		AadhaarBackURL:  t.slots[AadhaarBack].URL,
		PANURL:          t.slots[PAN].URL,
		SelfieURL:       t.slots[Selfie].URL,
		Metadata:        meta.normalized(),
	}, nil
}
