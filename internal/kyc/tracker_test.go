package kyc

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func testFile(name string) *File {
	return &File{Name: name, ContentType: "image/jpeg", Content: []byte("jpeg-bytes")}
}

func uploadAll(t *testing.T, tr *Tracker) {
	t.Helper()
	for _, kind := range Kinds {
		_, err := tr.Select(kind, testFile(kind.Key()+".jpg"))
		require.NoError(t, err)
		ticket, err := tr.Begin(kind)
		require.NoError(t, err)
		_, ok := tr.Finish(ticket, "https://docs.example/"+kind.Key(), "")
		require.True(t, ok)
	}
}

func TestSelectResetsURL(t *testing.T) {
	tr := NewTracker()
	uploadAll(t, tr)

	for _, kind := range Kinds {
		f := testFile("new-" + kind.Key())
		slot, err := tr.Select(kind, f)
		require.NoError(t, err)
		require.Same(t, f, slot.File)
		require.Empty(t, slot.URL)
		require.Equal(t, MsgReady, slot.Message)
		require.Equal(t, SlotSelected, slot.State)
	}
	require.False(t, tr.Ready())
}

func TestClearSelectionKeepsURL(t *testing.T) {
	tr := NewTracker()
	uploadAll(t, tr)

	slot, err := tr.Select(PAN, nil)
	require.NoError(t, err)
	require.Nil(t, slot.File)
	require.Equal(t, "https://docs.example/pan", slot.URL)
	require.Equal(t, SlotUploaded, slot.State)
	require.True(t, tr.Ready())
}

func TestBeginWithoutFile(t *testing.T) {
	tr := NewTracker()
	_, err := tr.Begin(Selfie)
	require.ErrorIs(t, err, ErrNoFile)

	slot := tr.Slot(Selfie)
	require.Equal(t, MsgChooseFile, slot.Message)
	require.False(t, slot.Uploading)
}

func TestBeginRejectsSecondUpload(t *testing.T) {
	tr := NewTracker()
	_, err := tr.Select(PAN, testFile("pan.pdf"))
	require.NoError(t, err)
	_, err = tr.Begin(PAN)
	require.NoError(t, err)

	_, err = tr.Begin(PAN)
	require.ErrorIs(t, err, ErrUploadInFlight)
	require.True(t, tr.Slot(PAN).Uploading)
}

func TestFinishWithStatus(t *testing.T) {
	tr := NewTracker()
	_, err := tr.Select(AadhaarFront, testFile("a.jpg"))
	require.NoError(t, err)
	ticket, err := tr.Begin(AadhaarFront)
	require.NoError(t, err)
	require.Equal(t, MsgUploading, tr.Slot(AadhaarFront).Message)

	slot, ok := tr.Finish(ticket, "https://x/a.jpg", "approved")
	require.True(t, ok)
	require.Equal(t, "https://x/a.jpg", slot.URL)
	require.False(t, slot.Uploading)
	require.Equal(t, "Status: approved", slot.Message)
	require.Equal(t, SlotUploaded, slot.State)
	require.False(t, tr.Ready())
}

func TestFinishWithoutURLIsNotComplete(t *testing.T) {
	tr := NewTracker()
	_, _ = tr.Select(PAN, testFile("pan.jpg"))
	ticket, err := tr.Begin(PAN)
	require.NoError(t, err)

	slot, ok := tr.Finish(ticket, "", "")
	require.True(t, ok)
	require.False(t, slot.Complete())
	require.Equal(t, MsgUploaded, slot.Message)
	require.NotNil(t, slot.File)
}

func TestFailKeepsFile(t *testing.T) {
	tr := NewTracker()
	f := testFile("selfie.png")
	_, _ = tr.Select(Selfie, f)
	ticket, err := tr.Begin(Selfie)
	require.NoError(t, err)

	slot, ok := tr.Fail(ticket, "")
	require.True(t, ok)
	require.Same(t, f, slot.File)
	require.False(t, slot.Uploading)
	require.Equal(t, MsgUploadFailed, slot.Message)
	require.Equal(t, SlotFailed, slot.State)

	_, err = tr.Begin(Selfie)
	require.NoError(t, err)
}

func TestStaleTicketDiscarded(t *testing.T) {
	tr := NewTracker()
	_, _ = tr.Select(AadhaarBack, testFile("old.jpg"))
	stale, err := tr.Begin(AadhaarBack)
	require.NoError(t, err)

	fresh := testFile("new.jpg")
	_, _ = tr.Select(AadhaarBack, fresh)

	slot, ok := tr.Finish(stale, "https://x/old.jpg", "approved")
	require.False(t, ok)
	require.Empty(t, slot.URL)
	require.Same(t, fresh, slot.File)
	require.Equal(t, MsgReady, slot.Message)

	_, ok = tr.Fail(stale, "boom")
	require.False(t, ok)
	require.Equal(t, MsgReady, tr.Slot(AadhaarBack).Message)
}

func TestUploadSameFileTwiceIsIdempotent(t *testing.T) {
	tr := NewTracker()
	_, _ = tr.Select(PAN, testFile("pan.jpg"))

	var slots []Slot
	for i := 0; i < 2; i++ {
		ticket, err := tr.Begin(PAN)
		require.NoError(t, err)
		slot, ok := tr.Finish(ticket, "https://x/pan.jpg", "pending")
		require.True(t, ok)
		slots = append(slots, slot)
	}
	require.Equal(t, slots[0], slots[1])
}

func TestReadyRequiresEverySlot(t *testing.T) {
	for mask := 0; mask < 1<<len(Kinds); mask++ {
		tr := NewTracker()
		for i, kind := range Kinds {
			if mask&(1<<i) == 0 {
				continue
			}
			_, _ = tr.Select(kind, testFile(kind.Key()))
			ticket, err := tr.Begin(kind)
			require.NoError(t, err)
			tr.Finish(ticket, "https://x/"+kind.Key(), "")
		}
		want := mask == 1<<len(Kinds)-1
		require.Equal(t, want, tr.Ready(), "mask %04b", mask)
	}
}

func TestSubmission(t *testing.T) {
	tr := NewTracker()
	_, err := tr.Submission(Metadata{})
	require.ErrorIs(t, err, ErrIncomplete)

	uploadAll(t, tr)

	sub, err := tr.Submission(Metadata{PANName: "  Jane Doe "})
	require.NoError(t, err)
	require.Equal(t, "https://docs.example/aadhaar_front", sub.AadhaarFrontURL)
	require.Equal(t, "https://docs.example/aadhaar_back", sub.AadhaarBackURL)
	require.Equal(t, "https://docs.example/pan", sub.PANURL)
	require.Equal(t, "https://docs.example/selfie", sub.SelfieURL)

	body, err := json.Marshal(sub)
	require.NoError(t, err)
	require.JSONEq(t, `{
		"aadhaarFrontUrl":"https://docs.example/aadhaar_front",
		"aadhaarBackUrl":"https://docs.example/aadhaar_back",
		"panUrl":"https://docs.example/pan",
		"selfieUrl":"https://docs.example/selfie",
		"metadata":{"panName":"Jane Doe"}
	}`, string(body))

	sub, err = tr.Submission(Metadata{PANName: "   "})
	require.NoError(t, err)
	body, err = json.Marshal(sub)
	require.NoError(t, err)
	require.Contains(t, string(body), `"metadata":{}`)
}

func TestParseKind(t *testing.T) {
	for _, kind := range Kinds {
		parsed, err := ParseKind(kind.Key())
		require.NoError(t, err)
		require.Equal(t, kind, parsed)
	}
	_, err := ParseKind("passport")
	require.Error(t, err)

	_, err = NewTracker().Select(DocumentKind(9), testFile("x"))
	require.ErrorIs(t, err, ErrUnknownKind)
}
