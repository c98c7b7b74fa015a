package report

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mr1hm/coastwatch/internal/models"
)

var t0 = time.Date(2024, 7, 1, 12, 0, 0, 0, time.UTC)

func readyDraft(t *testing.T) *Draft {
	t.Helper()
	d := NewDraft("d-1", t0)
	require.NoError(t, d.SetReporter("Asha", "+91 90000 00000", "asha@example.com"))
	require.NoError(t, d.SetLocation(models.Coordinates{Lat: 13.0827, Lng: 80.2707}, "", "Tamil Nadu"))
	require.True(t, d.Next())
	require.NoError(t, d.SetHazardType(models.HazardTypeRipCurrent))
	require.NoError(t, d.SetDescription("strong pull near the groyne"))
	require.True(t, d.Next())
	require.Equal(t, StepReview, d.Step)
	return d
}

func TestNewDraftDefaults(t *testing.T) {
	d := NewDraft("d-1", t0)
	assert.Equal(t, StepLocation, d.Step)
	assert.Equal(t, DefaultSeverity, d.Severity)
	assert.Equal(t, "High", SeverityLabel(d.Severity))
	assert.NotNil(t, d.Attachments)
}

func TestNextBlockedAtLocation(t *testing.T) {
	d := NewDraft("d-1", t0)
	before := d.Clone()

	assert.False(t, d.CanAdvance())
	assert.False(t, d.Next())
	assert.Equal(t, before, d, "blocked next must not change the draft")
}

func TestLocationGuard(t *testing.T) {
	cases := []struct {
		name      string
		location  bool
		anonymous bool
		reporter  string
		want      bool
	}{
		{"nothing", false, false, "", false},
		{"location only", true, false, "", false},
		{"blank name", true, false, "   ", false},
		{"named", true, false, "Ravi", true},
		{"anonymous", true, true, "", true},
		{"anonymous without location", false, true, "", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := NewDraft("d", t0)
			d.ReporterName = tc.reporter
			d.Anonymous = tc.anonymous
			if tc.location {
				require.NoError(t, d.SetLocation(models.Coordinates{Lat: 10, Lng: 76}, "Kochi", ""))
			}
			assert.Equal(t, tc.want, d.Next())
			if tc.want {
				assert.Equal(t, StepHazardDetails, d.Step)
			} else {
				assert.Equal(t, StepLocation, d.Step)
			}
		})
	}
}

func TestHazardDetailsGuard(t *testing.T) {
	d := NewDraft("d", t0)
	require.NoError(t, d.SetAnonymous(true))
	require.NoError(t, d.SetLocation(models.Coordinates{Lat: 10, Lng: 76}, "", ""))
	require.True(t, d.Next())

	assert.False(t, d.Next(), "no hazard type")
	require.NoError(t, d.SetHazardType(models.HazardTypeErosion))
	require.NoError(t, d.SetDescription("  "))
	assert.False(t, d.Next(), "blank description")
	require.NoError(t, d.SetDescription("dune collapse"))
	assert.True(t, d.Next())
	assert.Equal(t, StepReview, d.Step)

	assert.False(t, d.Next(), "review only leaves through finalization")
}

func TestPrevKeepsFields(t *testing.T) {
	d := readyDraft(t)
	want := d.Clone()

	require.True(t, d.Prev())
	require.True(t, d.Prev())
	assert.Equal(t, StepLocation, d.Step)
	assert.False(t, d.Prev(), "no step before location")

	assert.True(t, d.Next())
	assert.True(t, d.Next())
	assert.Equal(t, want, d)
}

func TestSetLocationDerivesAddress(t *testing.T) {
	d := NewDraft("d", t0)
	require.NoError(t, d.SetLocation(models.Coordinates{Lat: 13.08271, Lng: 80.27069}, "", ""))
	assert.Equal(t, "13.0827, 80.2707", d.Location.Address)

	err := d.SetLocation(models.Coordinates{Lat: 91, Lng: 0}, "nowhere", "")
	assert.ErrorIs(t, err, ErrInvalidLocation)
	assert.Equal(t, "13.0827, 80.2707", d.Location.Address, "invalid location must not replace the old one")
}

func TestSetSeverityRange(t *testing.T) {
	d := NewDraft("d", t0)
	for n := SeverityVeryLow; n <= SeverityCritical; n++ {
		assert.NoError(t, d.SetSeverity(n))
	}
	assert.ErrorIs(t, d.SetSeverity(-1), ErrInvalidSeverity)
	assert.ErrorIs(t, d.SetSeverity(5), ErrInvalidSeverity)
	assert.Equal(t, SeverityCritical, d.Severity)
}

func TestRecordSeverity(t *testing.T) {
	assert.Equal(t, models.SeverityLow, RecordSeverity(SeverityVeryLow))
	assert.Equal(t, models.SeverityLow, RecordSeverity(SeverityLow))
	assert.Equal(t, models.SeverityMedium, RecordSeverity(SeverityModerate))
	assert.Equal(t, models.SeverityHigh, RecordSeverity(SeverityHigh))
	assert.Equal(t, models.SeverityCritical, RecordSeverity(SeverityCritical))
}

func TestAttachments(t *testing.T) {
	d := NewDraft("d", t0)
	require.NoError(t, d.AddAttachment(Attachment{Name: "a.jpg", ContentType: "image/jpeg", Size: 10}))
	require.NoError(t, d.AddAttachment(Attachment{Name: "b.mp4", ContentType: "video/mp4", Size: 20}))
	assert.Error(t, d.AddAttachment(Attachment{Name: " "}))

	require.NoError(t, d.RemoveAttachment(0))
	require.Len(t, d.Attachments, 1)
	assert.Equal(t, "b.mp4", d.Attachments[0].Name)
	assert.ErrorIs(t, d.RemoveAttachment(3), ErrNoAttachment)
}

func TestClosedDraftRejectsEdits(t *testing.T) {
	d := readyDraft(t)
	d.finish(StepSubmitted)

	assert.ErrorIs(t, d.SetDescription("late"), ErrDraftClosed)
	assert.ErrorIs(t, d.SetSeverity(1), ErrDraftClosed)
	assert.ErrorIs(t, d.AddAttachment(Attachment{Name: "x"}), ErrDraftClosed)
	assert.ErrorIs(t, d.Apply(Patch{}), ErrDraftClosed)
	assert.False(t, d.Prev())
	assert.False(t, d.Next())
}

func TestPrefillLocation(t *testing.T) {
	d := NewDraft("d", t0)
	ok := LocatorFunc(func(context.Context) (models.Coordinates, error) {
		return models.Coordinates{Lat: 15.5439, Lng: 73.7553}, nil
	})
	require.NoError(t, d.PrefillLocation(context.Background(), ok))
	assert.Equal(t, "15.5439, 73.7553", d.Location.Address)

	denied := LocatorFunc(func(context.Context) (models.Coordinates, error) {
		return models.Coordinates{}, errors.New("permission denied")
	})
	err := d.PrefillLocation(context.Background(), denied)
	assert.ErrorIs(t, err, ErrLocationUnavailable)
	assert.Equal(t, "15.5439, 73.7553", d.Location.Address, "failure leaves the draft as it was")

	assert.ErrorIs(t, NewDraft("e", t0).PrefillLocation(context.Background(), nil), ErrLocationUnavailable)
}

func TestApplyIsAllOrNothing(t *testing.T) {
	d := NewDraft("d", t0)
	desc := "oil sheen"
	bad := 9
	err := d.Apply(Patch{Description: &desc, Severity: &bad})
	assert.ErrorIs(t, err, ErrInvalidSeverity)
	assert.Empty(t, d.Description)

	typ := models.HazardTypePollution
	name := "Meera"
	require.NoError(t, d.Apply(Patch{
		ReporterName: &name,
		Description:  &desc,
		HazardType:   &typ,
		Location:     &LocationInput{Lat: 19.07, Lng: 72.87, Region: "Maharashtra"},
	}))
	assert.Equal(t, "Meera", d.ReporterName)
	assert.Equal(t, models.HazardTypePollution, d.HazardType)
	assert.Equal(t, "Maharashtra", d.Location.Region)
}

func TestRecord(t *testing.T) {
	d := readyDraft(t)
	require.NoError(t, d.SetAnonymous(true))

	r := d.Record("rec-1", t0)
	assert.Equal(t, "Anonymous", r.Reporter)
	assert.Equal(t, models.StatusActive, r.Status)
	assert.Equal(t, models.SeverityHigh, r.Severity)
	assert.Equal(t, "Tamil Nadu", r.Region)
	assert.Equal(t, "13.0827, 80.2707", r.Location)
	assert.Contains(t, r.Title, "Rip Current")
	assert.NoError(t, r.Validate())
}
