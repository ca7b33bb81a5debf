// Package forms holds the listing form controller: variant-aware input
// collection, client-side validation, and payload shaping in front of the
// gateway and the optimistic mutator.
package forms

import (
	"context"
	"errors"
	"sync"

	"github.com/sillage/backend/internal/cache"
	"github.com/sillage/backend/internal/models"
	"github.com/sillage/backend/internal/services"
)

var (
	// ErrUploadInProgress blocks submission while images are still uploading.
	ErrUploadInProgress = errors.New("image upload in progress")
	// ErrSubmitInProgress blocks the double-click duplicate submission.
	ErrSubmitInProgress = errors.New("submission already in progress")
)

// ValidationError is a client-side rule violation. It never reaches the
// gateway and never touches the cache.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// IsValidationError reports whether err came from form validation.
func IsValidationError(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// ListingEditor drives one create-or-edit listing form session.
type ListingEditor struct {
	mu       sync.Mutex
	ownerID  string
	uploader services.ImageUploader
	mutator  *cache.ListingMutator

	draft      models.ListingDraft
	uploading  bool
	submitting bool
	lastError  string
}

func NewListingEditor(ownerID string, uploader services.ImageUploader, mutator *cache.ListingMutator) *ListingEditor {
	return &ListingEditor{
		ownerID:  ownerID,
		uploader: uploader,
		mutator:  mutator,
	}
}

// SetDraft replaces the form fields. Already-attached images are kept unless
// the new draft carries its own.
func (e *ListingEditor) SetDraft(d models.ListingDraft) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if d.ImageURLs == nil {
		d.ImageURLs = e.draft.ImageURLs
	}
	e.draft = d
}

func (e *ListingEditor) Draft() models.ListingDraft {
	e.mu.Lock()
	defer e.mu.Unlock()

	d := e.draft
	d.ImageURLs = append([]string(nil), e.draft.ImageURLs...)
	return d
}

// LastError returns the message shown next to the form, "" when clean.
func (e *ListingEditor) LastError() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastError
}

// Uploading reports whether an image batch is still in flight.
func (e *ListingEditor) Uploading() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.uploading
}

// AttachImages uploads the batch and appends the resulting URLs to the
// draft. On partial failure the successfully uploaded URLs are kept; the
// remote objects are never rolled back (accepted storage cost).
func (e *ListingEditor) AttachImages(ctx context.Context, files []services.UploadFile) error {
	e.mu.Lock()
	if e.uploading {
		e.mu.Unlock()
		return ErrUploadInProgress
	}
	e.uploading = true
	e.mu.Unlock()

	urls, err := e.uploader.UploadImages(ctx, e.ownerID, files)

	e.mu.Lock()
	defer e.mu.Unlock()
	e.uploading = false
	e.draft.ImageURLs = append(e.draft.ImageURLs, urls...)
	if err != nil {
		e.lastError = err.Error()
		return err
	}
	return nil
}

// RemoveImage drops an attached image from the draft only. The remote object
// stays; see AttachImages.
func (e *ListingEditor) RemoveImage(index int) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if index < 0 || index >= len(e.draft.ImageURLs) {
		return
	}
	e.draft.ImageURLs = append(e.draft.ImageURLs[:index], e.draft.ImageURLs[index+1:]...)
}

// Submit validates, shapes and creates the listing. Validation failures stop
// before any gateway or cache activity.
func (e *ListingEditor) Submit(ctx context.Context) (*models.Listing, error) {
	e.mu.Lock()
	if e.uploading {
		e.mu.Unlock()
		return nil, ErrUploadInProgress
	}
	if e.submitting {
		e.mu.Unlock()
		return nil, ErrSubmitInProgress
	}
	e.submitting = true
	e.lastError = ""
	draft := e.draft
	draft.ImageURLs = append([]string(nil), e.draft.ImageURLs...)
	e.mu.Unlock()

	finish := func(err error) {
		e.mu.Lock()
		defer e.mu.Unlock()
		e.submitting = false
		if err != nil {
			e.lastError = err.Error()
		}
	}

	if msg := draft.FirstError(); msg != "" {
		err := &ValidationError{Message: msg}
		finish(err)
		return nil, err
	}

	created, err := e.mutator.Create(ctx, e.ownerID, &draft)
	finish(err)
	if err != nil {
		return nil, err
	}
	return created, nil
}

// SubmitUpdate validates the patch and routes it through the optimistic
// mutator. The form stays populated for retry on remote failure.
func (e *ListingEditor) SubmitUpdate(ctx context.Context, listingID string, patch *models.ListingPatch) (*models.Listing, error) {
	e.mu.Lock()
	if e.uploading {
		e.mu.Unlock()
		return nil, ErrUploadInProgress
	}
	if e.submitting {
		e.mu.Unlock()
		return nil, ErrSubmitInProgress
	}
	e.submitting = true
	e.lastError = ""
	e.mu.Unlock()

	finish := func(err error) {
		e.mu.Lock()
		defer e.mu.Unlock()
		e.submitting = false
		if err != nil {
			e.lastError = err.Error()
		}
	}

	if errs := patch.Validate(); len(errs) > 0 {
		err := &ValidationError{Message: firstMessage(errs)}
		finish(err)
		return nil, err
	}

	updated, err := e.mutator.Update(ctx, e.ownerID, listingID, patch)
	finish(err)
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// firstMessage picks a deterministic message from a validation map.
func firstMessage(errs map[string]string) string {
	// Field order mirrors the form layout.
	for _, field := range []string{"variant", "brand", "name", "image_urls", "bottle_size_ml", "partial_left_ml", "price", "decant_options"} {
		if msg, ok := errs[field]; ok {
			return msg
		}
	}
	for _, msg := range errs {
		return msg
	}
	return "Validation failed"
}
