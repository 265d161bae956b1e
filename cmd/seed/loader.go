package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/userhub-io/userhub/internal/users"
)

type (
	// rejection is one input record that was not written, by position in the file.
	rejection struct {
		Index  int
		Email  string
		Reason string
	}

	// report summarizes one seed run.
	report struct {
		Read     int
		Inserted int64
		Skipped  int64
		Rejected []rejection
	}

	loader struct {
		users  *users.Service
		store  users.Store
		strict bool
		logger *slog.Logger
	}
)

// decodeInputs reads a JSON array of user objects.
func decodeInputs(r io.Reader) ([]users.Input, error) {
	var inputs []users.Input

	if err := json.NewDecoder(r).Decode(&inputs); err != nil {
		return nil, fmt.Errorf("failed to decode seed file: %w", err)
	}

	return inputs, nil
}

// load validates every input and writes the valid ones. The default mode is one bulk
// InsertMany that skips existing emails; strict mode inserts one by one and reports
// existing emails as rejections.
func (l *loader) load(ctx context.Context, inputs []users.Input) (*report, error) {
	rep := &report{Read: len(inputs)}
	records := make([]users.Record, 0, len(inputs))
	positions := make([]int, 0, len(inputs))

	for i, in := range inputs {
		record, err := l.users.Prepare(in)
		if err != nil {
			rep.Rejected = append(rep.Rejected, rejection{Index: i, Email: emailOf(in), Reason: reasonOf(err)})

			continue
		}

		records = append(records, record)
		positions = append(positions, i)
	}

	if !l.strict {
		inserted, err := l.store.InsertMany(ctx, records)
		if err != nil {
			return rep, err
		}

		rep.Inserted = inserted
		rep.Skipped = int64(len(records)) - inserted

		return rep, nil
	}

	for n, record := range records {
		id, err := l.store.InsertOne(ctx, record)
		if errors.Is(err, users.ErrDuplicateEmail) {
			rep.Rejected = append(rep.Rejected, rejection{
				Index: positions[n], Email: record.Email, Reason: "email ja cadastrado",
			})

			continue
		}

		if err != nil {
			return rep, err
		}

		l.logger.Debug("Seed record inserted", slog.Int64("user_id", id))
		rep.Inserted++
	}

	return rep, nil
}

func emailOf(in users.Input) string {
	if s, ok := in.Email.(string); ok {
		return s
	}

	return ""
}

func reasonOf(err error) string {
	var verr *users.ValidationError
	if errors.As(err, &verr) {
		return verr.Joined()
	}

	return err.Error()
}
