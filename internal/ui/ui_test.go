package ui

import (
	"context"
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/gmsync/internal/tasks"
)

// stallingEngine blocks until its context is cancelled, like a sync
// mid-transfer.
type stallingEngine struct{}

func (stallingEngine) Down(ctx context.Context, progress chan<- tasks.ProgressUpdate, opts tasks.DownOpts) (*tasks.DownResult, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func (stallingEngine) Up(ctx context.Context, progress chan<- tasks.ProgressUpdate, opts tasks.UpOpts) (*tasks.UpResult, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestModelQuitBeforeCompletion(t *testing.T) {
	t.Run("down", func(t *testing.T) {
		model := NewDownModel(context.Background(), stallingEngine{}, tasks.DownOpts{})

		_, cmd := model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
		if cmd == nil {
			t.Fatal("expected quit command")
		}

		result, err := model.DownResult()
		if result != nil {
			t.Errorf("expected no result, got %+v", result)
		}
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})

	t.Run("up", func(t *testing.T) {
		model := NewUpModel(context.Background(), stallingEngine{}, tasks.UpOpts{})

		_, cmd := model.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
		if cmd == nil {
			t.Fatal("expected quit command")
		}

		result, err := model.UpResult()
		if result != nil {
			t.Errorf("expected no result, got %+v", result)
		}
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})
}

func TestModelCompletedSync(t *testing.T) {
	model := NewDownModel(context.Background(), stallingEngine{}, tasks.DownOpts{})

	done := syncCompleteMsg{down: &tasks.DownResult{Downloaded: 3}}
	if _, cmd := model.Update(done); cmd == nil {
		t.Fatal("expected quit command after completion")
	}

	result, err := model.DownResult()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result == nil || result.Downloaded != 3 {
		t.Errorf("unexpected result: %+v", result)
	}
}
