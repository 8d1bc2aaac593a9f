package console

import (
	"fmt"
	"path/filepath"

	"github.com/charmbracelet/bubbles/filepicker"
	tea "github.com/charmbracelet/bubbletea"

	"lunarmonkeys/internal/logging"
	"lunarmonkeys/internal/manifest"
)

// attachTarget names the form field a picked file goes to.
type attachTarget int

const (
	attachAvatar attachTarget = iota + 1
	attachProof
)

func (t attachTarget) String() string {
	if t == attachAvatar {
		return "avatar"
	}
	return "proof document"
}

// imageExtensions restricts the avatar picker.
var imageExtensions = []string{".png", ".jpg", ".jpeg", ".gif", ".webp"}

// attachModel wraps the bubbles file picker used for form attachments.
type attachModel struct {
	picker filepicker.Model
	active bool
	target attachTarget
	dir    string
}

func newAttachModel(dir string) attachModel {
	return attachModel{dir: dir}
}

// open shows the picker for target, starting in the last used directory.
func (a *attachModel) open(target attachTarget, height int) tea.Cmd {
	fp := filepicker.New()
	fp.CurrentDirectory = a.dir
	fp.AutoHeight = false
	fp.Height = height
	if target == attachAvatar {
		fp.AllowedTypes = imageExtensions
	}
	a.picker = fp
	a.target = target
	a.active = true
	logging.UIDebug("Attach: picking %s from %s", target, a.dir)
	return fp.Init()
}

func (a attachModel) update(msg tea.Msg) (attachModel, tea.Cmd) {
	if k, ok := msg.(tea.KeyMsg); ok && k.String() == "q" {
		a.active = false
		logging.UIDebug("Attach: %s picker cancelled", a.target)
		return a, nil
	}

	var cmd tea.Cmd
	a.picker, cmd = a.picker.Update(msg)

	if ok, path := a.picker.DidSelectFile(msg); ok {
		a.active = false
		a.dir = filepath.Dir(path)
		return a, loadFileCmd(a.target, path)
	}
	if ok, path := a.picker.DidSelectDisabledFile(msg); ok {
		logging.UIDebug("Attach: %s is not an allowed %s", path, a.target)
	}
	return a, cmd
}

func (a attachModel) view() string {
	return a.picker.View()
}

// describeFile renders the attachment preview line.
func describeFile(f *manifest.File) string {
	return fmt.Sprintf("%s · %s · %s", f.Name, f.ContentType, humanSize(f.Size()))
}

func humanSize(n int) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := unit, 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(n)/float64(div), "KMGT"[exp])
}
