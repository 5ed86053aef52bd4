package tui

import (
	"context"
	"errors"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/John-Robertt/strmgen/internal/config"
	"github.com/John-Robertt/strmgen/internal/session"
)

// Run 启动 TUI，直到用户退出或 ctx 结束。
func Run(ctx context.Context, eff config.EffectiveConfig) error {
	p := tea.NewProgram(New(ctx, eff, session.New()), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
