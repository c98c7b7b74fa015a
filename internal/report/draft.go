package report

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/mr1hm/coastwatch/internal/models"
)

var (
	ErrDraftClosed         = errors.New("draft already finalized")
	ErrDraftNotFound       = errors.New("draft not found")
	ErrLocationUnavailable = errors.New("current location unavailable")
	ErrInvalidSeverity     = errors.New("severity must be between 0 and 4")
	ErrInvalidLocation     = errors.New("coordinates out of range")
	ErrNoAttachment        = errors.New("no attachment at index")
)

type Step int

const (
	StepLocation Step = iota
	StepHazardDetails
	StepReview
	StepSubmitted
	StepQueuedOffline
)

func (s Step) String() string {
	switch s {
	case StepLocation:
		return "location"
	case StepHazardDetails:
		return "hazard-details"
	case StepReview:
		return "review"
	case StepSubmitted:
		return "submitted"
	case StepQueuedOffline:
		return "queued-offline"
	default:
		return fmt.Sprintf("step(%d)", int(s))
	}
}

func (s Step) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Step) UnmarshalText(b []byte) error {
	for v := StepLocation; v <= StepQueuedOffline; v++ {
		if v.String() == string(b) {
			*s = v
			return nil
		}
	}
	return fmt.Errorf("unknown step %q", b)
}

// Terminal reports whether the draft has been finalized.
func (s Step) Terminal() bool {
	return s == StepSubmitted || s == StepQueuedOffline
}

// Severity ordinals as picked on the report form slider.
const (
	SeverityVeryLow = iota
	SeverityLow
	SeverityModerate
	SeverityHigh
	SeverityCritical

	DefaultSeverity = SeverityHigh
)

var severityLabels = [...]string{"Very Low", "Low", "Moderate", "High", "Critical"}

// SeverityLabel returns the form label for an ordinal, or "" when out of range.
func SeverityLabel(n int) string {
	if n < SeverityVeryLow || n > SeverityCritical {
		return ""
	}
	return severityLabels[n]
}

// RecordSeverity maps a form ordinal onto the stored severity scale.
func RecordSeverity(n int) models.Severity {
	switch {
	case n <= SeverityLow:
		return models.SeverityLow
	case n == SeverityModerate:
		return models.SeverityMedium
	case n == SeverityHigh:
		return models.SeverityHigh
	default:
		return models.SeverityCritical
	}
}

type Location struct {
	Coordinates models.Coordinates `json:"coordinates"`
	Address     string             `json:"address"`
	Region      string             `json:"region,omitempty"`
}

type Attachment struct {
	Name        string `json:"name"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
}

// Draft is an in-progress hazard report. Fields are exported for encoding;
// mutate through the methods so the step guards hold.
type Draft struct {
	ID           string            `json:"id"`
	Step         Step              `json:"step"`
	ReporterName string            `json:"reporter_name"`
	Contact      string            `json:"contact"`
	Email        string            `json:"email"`
	Anonymous    bool              `json:"anonymous"`
	Location     *Location         `json:"location,omitempty"`
	HazardType   models.HazardType `json:"hazard_type,omitzero"`
	Severity     int               `json:"severity"`
	Description  string            `json:"description"`
	Attachments  []Attachment      `json:"attachments"`
	CreatedAt    time.Time         `json:"created_at"`
}

func NewDraft(id string, now time.Time) *Draft {
	return &Draft{
		ID:          id,
		Step:        StepLocation,
		Severity:    DefaultSeverity,
		Attachments: []Attachment{},
		CreatedAt:   now,
	}
}

// Clone returns a deep copy.
func (d *Draft) Clone() *Draft {
	c := *d
	if d.Location != nil {
		loc := *d.Location
		c.Location = &loc
	}
	c.Attachments = slices.Clone(d.Attachments)
	if c.Attachments == nil {
		c.Attachments = []Attachment{}
	}
	return &c
}

// CanAdvance reports whether Next would move the draft forward. Review is
// left only through finalization.
func (d *Draft) CanAdvance() bool {
	switch d.Step {
	case StepLocation:
		return d.Location != nil && (d.Anonymous || strings.TrimSpace(d.ReporterName) != "")
	case StepHazardDetails:
		return d.HazardType.Valid() && strings.TrimSpace(d.Description) != ""
	default:
		return false
	}
}

// Next advances one step when the guard allows it. A blocked Next leaves
// the draft untouched and returns false.
func (d *Draft) Next() bool {
	if !d.CanAdvance() {
		return false
	}
	d.Step++
	return true
}

// Prev steps back one step. Field values are kept.
func (d *Draft) Prev() bool {
	if d.Step.Terminal() || d.Step == StepLocation {
		return false
	}
	d.Step--
	return true
}

func (d *Draft) open() error {
	if d.Step.Terminal() {
		return ErrDraftClosed
	}
	return nil
}

func (d *Draft) SetReporter(name, contact, email string) error {
	if err := d.open(); err != nil {
		return err
	}
	d.ReporterName = strings.TrimSpace(name)
	d.Contact = strings.TrimSpace(contact)
	d.Email = strings.TrimSpace(email)
	return nil
}

func (d *Draft) SetAnonymous(anonymous bool) error {
	if err := d.open(); err != nil {
		return err
	}
	d.Anonymous = anonymous
	return nil
}

// SetLocation selects the report location. An empty address is derived
// from the coordinates.
func (d *Draft) SetLocation(c models.Coordinates, address, region string) error {
	if err := d.open(); err != nil {
		return err
	}
	if !c.Valid() {
		return fmt.Errorf("%w: %s", ErrInvalidLocation, c)
	}
	address = strings.TrimSpace(address)
	if address == "" {
		address = c.String()
	}
	d.Location = &Location{Coordinates: c, Address: address, Region: strings.TrimSpace(region)}
	return nil
}

func (d *Draft) ClearLocation() error {
	if err := d.open(); err != nil {
		return err
	}
	d.Location = nil
	return nil
}

func (d *Draft) SetHazardType(t models.HazardType) error {
	if err := d.open(); err != nil {
		return err
	}
	if t != models.HazardTypeUnspecified && !t.Valid() {
		return fmt.Errorf("invalid hazard type %d", int(t))
	}
	d.HazardType = t
	return nil
}

func (d *Draft) SetSeverity(n int) error {
	if err := d.open(); err != nil {
		return err
	}
	if SeverityLabel(n) == "" {
		return fmt.Errorf("%w: got %d", ErrInvalidSeverity, n)
	}
	d.Severity = n
	return nil
}

func (d *Draft) SetDescription(s string) error {
	if err := d.open(); err != nil {
		return err
	}
	d.Description = s
	return nil
}

func (d *Draft) AddAttachment(a Attachment) error {
	if err := d.open(); err != nil {
		return err
	}
	if strings.TrimSpace(a.Name) == "" {
		return errors.New("attachment name is required")
	}
	if a.Size < 0 {
		return errors.New("attachment size must not be negative")
	}
	d.Attachments = append(d.Attachments, a)
	return nil
}

func (d *Draft) RemoveAttachment(i int) error {
	if err := d.open(); err != nil {
		return err
	}
	if i < 0 || i >= len(d.Attachments) {
		return fmt.Errorf("%w %d", ErrNoAttachment, i)
	}
	d.Attachments = slices.Delete(d.Attachments, i, i+1)
	return nil
}

// Locator resolves the device's current position.
type Locator interface {
	Locate(ctx context.Context) (models.Coordinates, error)
}

type LocatorFunc func(ctx context.Context) (models.Coordinates, error)

func (f LocatorFunc) Locate(ctx context.Context) (models.Coordinates, error) {
	return f(ctx)
}

// PrefillLocation fills the location from loc. Any failure leaves the draft
// unchanged and is reported as ErrLocationUnavailable so callers can show a
// notice and let the user pick a point by hand.
func (d *Draft) PrefillLocation(ctx context.Context, loc Locator) error {
	if err := d.open(); err != nil {
		return err
	}
	if loc == nil {
		return ErrLocationUnavailable
	}
	c, err := loc.Locate(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrLocationUnavailable, err)
	}
	if !c.Valid() {
		return fmt.Errorf("%w: %w", ErrLocationUnavailable, ErrInvalidLocation)
	}
	return d.SetLocation(c, "", "")
}

// Patch is a partial update of a draft. Nil fields are left as they are.
type Patch struct {
	ReporterName *string            `json:"reporter_name"`
	Contact      *string            `json:"contact"`
	Email        *string            `json:"email"`
	Anonymous    *bool              `json:"anonymous"`
	Location     *LocationInput     `json:"location"`
	HazardType   *models.HazardType `json:"hazard_type"`
	Severity     *int               `json:"severity"`
	Description  *string            `json:"description"`
}

type LocationInput struct {
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
	Address string  `json:"address"`
	Region  string  `json:"region"`
}

// Apply applies every set field of p. On error the draft is left as it was.
func (d *Draft) Apply(p Patch) error {
	if err := d.open(); err != nil {
		return err
	}
	next := d.Clone()
	name, contact, email := next.ReporterName, next.Contact, next.Email
	if p.ReporterName != nil {
		name = *p.ReporterName
	}
	if p.Contact != nil {
		contact = *p.Contact
	}
	if p.Email != nil {
		email = *p.Email
	}
	var errs []error
	errs = append(errs, next.SetReporter(name, contact, email))
	if p.Anonymous != nil {
		errs = append(errs, next.SetAnonymous(*p.Anonymous))
	}
	if p.Location != nil {
		c := models.Coordinates{Lat: p.Location.Lat, Lng: p.Location.Lng}
		errs = append(errs, next.SetLocation(c, p.Location.Address, p.Location.Region))
	}
	if p.HazardType != nil {
		errs = append(errs, next.SetHazardType(*p.HazardType))
	}
	if p.Severity != nil {
		errs = append(errs, next.SetSeverity(*p.Severity))
	}
	if p.Description != nil {
		errs = append(errs, next.SetDescription(*p.Description))
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}
	*d = *next
	return nil
}

// Record converts the draft into a hazard record.
func (d *Draft) Record(id string, now time.Time) models.HazardRecord {
	reporter := strings.TrimSpace(d.ReporterName)
	if d.Anonymous || reporter == "" {
		reporter = "Anonymous"
	}
	r := models.HazardRecord{
		ID:          id,
		Type:        d.HazardType,
		Severity:    RecordSeverity(d.Severity),
		Status:      models.StatusActive,
		Reporter:    reporter,
		Timestamp:   now,
		Description: strings.TrimSpace(d.Description),
	}
	if d.Location != nil {
		r.Coordinates = d.Location.Coordinates
		r.Location = d.Location.Address
		r.Region = d.Location.Region
		r.Title = fmt.Sprintf("%s at %s", d.HazardType.Label(), d.Location.Address)
	} else {
		r.Title = d.HazardType.Label()
	}
	return r
}

// finish moves the draft to a terminal step and drops everything the user
// entered.
func (d *Draft) finish(step Step) {
	*d = Draft{
		ID:          d.ID,
		Step:        step,
		Severity:    DefaultSeverity,
		Attachments: []Attachment{},
		CreatedAt:   d.CreatedAt,
	}
}
