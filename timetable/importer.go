package timetable

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"go.uber.org/zap"

	"classtrack/models"
	"classtrack/ocr"
)

// Messages shown to the user when an import fails.
const (
	MsgProcessingFailed = "Error processing image. Please try again."
	MsgNoSubjects       = "No subjects could be extracted from the image. Please check the image format."
	MsgUnsupportedImage = "Unsupported file type. Please upload a PNG or JPEG image."
	MsgBadSpreadsheet   = "Error reading spreadsheet. Please upload an .xlsx timetable."
)

// UserError carries the message to display alongside the underlying cause.
type UserError struct {
	Message string
	Err     error
}

func (e *UserError) Error() string { return e.Message }

func (e *UserError) Unwrap() error { return e.Err }

// Sink receives imported subjects.
type Sink interface {
	ImportSubjects(candidates []models.Subject) []models.Subject
}

// Importer runs image and spreadsheet timetables into a Sink.
type Importer struct {
	OCR     ocr.Recognizer
	Sink    Sink
	Logger  *zap.Logger
	Timeout time.Duration
}

// ImportImage recognizes the image, extracts subjects and adds them to the sink.
// Every failure is returned as a *UserError.
func (im *Importer) ImportImage(ctx context.Context, image io.Reader) ([]models.Subject, error) {
	data, err := io.ReadAll(image)
	if err != nil {
		return nil, &UserError{Message: MsgProcessingFailed, Err: err}
	}
	mt := mimetype.Detect(data)
	if !mt.Is("image/png") && !mt.Is("image/jpeg") {
		return nil, &UserError{Message: MsgUnsupportedImage, Err: fmt.Errorf("unsupported type %s", mt.String())}
	}

	if im.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, im.Timeout)
		defer cancel()
	}

	text, err := im.OCR.Recognize(ctx, bytes.NewReader(data))
	if err != nil {
		im.Logger.Error("OCR Error", zap.Error(err))
		return nil, &UserError{Message: MsgProcessingFailed, Err: err}
	}

	candidates, err := Extract(text)
	if err != nil {
		return nil, im.extractError(err)
	}
	added := im.Sink.ImportSubjects(candidates)
	im.Logger.Info("Imported timetable image", zap.Int("subjects", len(added)))
	return added, nil
}

// ImportSpreadsheet reads an xlsx timetable and adds its subjects to the sink.
func (im *Importer) ImportSpreadsheet(r io.Reader) ([]models.Subject, error) {
	candidates, err := FromSpreadsheet(r, im.Logger)
	if err != nil {
		if errors.Is(err, ErrNoSubjects) {
			return nil, im.extractError(err)
		}
		im.Logger.Error("Spreadsheet Error", zap.Error(err))
		return nil, &UserError{Message: MsgBadSpreadsheet, Err: err}
	}
	added := im.Sink.ImportSubjects(candidates)
	im.Logger.Info("Imported timetable spreadsheet", zap.Int("subjects", len(added)))
	return added, nil
}

func (im *Importer) extractError(err error) error {
	if errors.Is(err, ErrNoSubjects) {
		return &UserError{Message: MsgNoSubjects, Err: err}
	}
	return &UserError{Message: MsgProcessingFailed, Err: err}
}
