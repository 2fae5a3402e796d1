package confirm

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/contre95/song-classifier/src/music"
)

// GenreSuggestions are offered on the genre field; the proposed genre is always listed first.
var GenreSuggestions = []string{
	"House",
	"Techno",
	"Trance",
	"Drum & Bass",
	"Dubstep",
	"Hip-Hop",
	"Pop",
	"Rock",
	"Indie",
	"Electronic",
	"Ambient",
}

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF6B6B")).
			MarginBottom(1)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#4ECDC4"))

	focusedLabelStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("#F8B500"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6C757D"))

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#4ECDC4")).
			Padding(1, 2)
)

const (
	fieldTrack = iota
	fieldArtist
	fieldAlbum
	fieldAlbumArtist
	fieldGenre
	fieldDate
	fieldCount
)

var fieldLabels = [fieldCount]string{
	fieldTrack:       "Track",
	fieldArtist:      "Artist",
	fieldAlbum:       "Album",
	fieldAlbumArtist: "Album artist",
	fieldGenre:       "Genre",
	fieldDate:        "Date (YYYY or YYYY-MM-DD)",
}

// formModel is the Bubble Tea model behind FormConfirmer.
type formModel struct {
	key    string
	inputs [fieldCount]textinput.Model
	genres []string
	focus  int
	albums []*music.Album

	compilation bool
	// previousAlbumArtist is restored when the compilation toggle is switched off.
	previousAlbumArtist string

	err       string
	submitted bool
	cancelled bool
}

func newFormModel(proposed *music.Track, albums []*music.Album) formModel {
	m := formModel{key: proposed.Key, albums: albums}
	values := [fieldCount]string{
		fieldTrack:       proposed.Title,
		fieldArtist:      proposed.Artist,
		fieldAlbum:       proposed.Album.Name,
		fieldAlbumArtist: proposed.Album.Artist,
		fieldGenre:       proposed.Genre,
		fieldDate:        proposed.DateString(),
	}
	for i := range m.inputs {
		ti := textinput.New()
		ti.Prompt = "> "
		ti.Placeholder = fieldLabels[i]
		ti.CharLimit = 500
		ti.Width = 60
		ti.SetValue(values[i])
		m.inputs[i] = ti
	}

	names := make([]string, 0, len(albums))
	for _, a := range albums {
		names = append(names, a.Name)
	}
	m.inputs[fieldAlbum].ShowSuggestions = true
	m.inputs[fieldAlbum].SetSuggestions(names)

	m.genres = append([]string{}, GenreSuggestions...)
	if g := strings.TrimSpace(proposed.Genre); g != "" && !containsFold(m.genres, g) {
		m.genres = append([]string{g}, m.genres...)
	}
	m.inputs[fieldGenre].ShowSuggestions = true
	m.inputs[fieldGenre].SetSuggestions(m.genres)

	m.compilation = proposed.Album.IsCompilation()
	m.inputs[fieldTrack].Focus()
	return m
}

func (m formModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m formModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		var cmd tea.Cmd
		m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
		return m, cmd
	}

	switch key.String() {
	case "esc", "ctrl+c":
		m.cancelled = true
		return m, tea.Quit
	case "ctrl+s":
		return m.submit()
	case "enter":
		if m.focus == fieldCount-1 {
			return m.submit()
		}
		return m.move(1)
	case "down":
		return m.move(1)
	case "up", "shift+tab":
		return m.move(-1)
	case "ctrl+k":
		m.toggleCompilation()
		return m, nil
	}

	var cmd tea.Cmd
	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	m.err = ""
	return m, cmd
}

// move shifts focus and fills the album artist when a known album was chosen.
func (m formModel) move(delta int) (tea.Model, tea.Cmd) {
	if m.focus == fieldAlbum {
		m.applyKnownAlbum()
	}
	next := m.focus + delta
	if next < 0 || next >= fieldCount {
		return m, nil
	}
	m.inputs[m.focus].Blur()
	m.focus = next
	return m, m.inputs[m.focus].Focus()
}

func (m *formModel) applyKnownAlbum() {
	if m.compilation {
		return
	}
	name := strings.TrimSpace(m.inputs[fieldAlbum].Value())
	for _, a := range m.albums {
		if a.Name == name && a.Artist != "" {
			m.inputs[fieldAlbumArtist].SetValue(a.Artist)
			return
		}
	}
}

func (m *formModel) toggleCompilation() {
	m.compilation = !m.compilation
	if m.compilation {
		m.previousAlbumArtist = m.inputs[fieldAlbumArtist].Value()
		m.inputs[fieldAlbumArtist].SetValue(music.VariousArtistsName)
		return
	}
	restored := m.previousAlbumArtist
	if restored == "" || strings.EqualFold(restored, music.VariousArtistsName) {
		restored = m.inputs[fieldArtist].Value()
	}
	m.inputs[fieldAlbumArtist].SetValue(restored)
}

func (m formModel) submit() (tea.Model, tea.Cmd) {
	if m.focus == fieldAlbum {
		m.applyKnownAlbum()
	}
	if date := strings.TrimSpace(m.inputs[fieldDate].Value()); date != "" && !music.IsISODate(date) {
		m.err = fmt.Sprintf("invalid date %q, use YYYY, YYYY-MM or YYYY-MM-DD", date)
		return m, nil
	}
	m.submitted = true
	return m, tea.Quit
}

// track builds the confirmed record from the form values.
func (m formModel) track() *music.Track {
	value := func(i int) string { return strings.TrimSpace(m.inputs[i].Value()) }
	artist := value(fieldArtist)
	albumArtist := value(fieldAlbumArtist)
	if m.compilation {
		albumArtist = music.VariousArtistsName
	}
	if albumArtist == "" {
		albumArtist = artist
	}
	return &music.Track{
		Key:    m.key,
		Title:  value(fieldTrack),
		Artist: artist,
		Album:  music.Album{Name: value(fieldAlbum), Artist: albumArtist},
		Genre:  value(fieldGenre),
		Date:   music.NewDate(value(fieldDate)),
	}
}

func (m formModel) View() string {
	if m.submitted || m.cancelled {
		return ""
	}
	var b strings.Builder
	b.WriteString(titleStyle.Render("Review and confirm track metadata"))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render("File: " + m.key))
	b.WriteString("\n\n")
	for i, input := range m.inputs {
		label := labelStyle
		if i == m.focus {
			label = focusedLabelStyle
		}
		text := fieldLabels[i]
		if i == fieldAlbumArtist && m.compilation {
			text += " [compilation]"
		}
		b.WriteString(label.Render(text))
		b.WriteString("\n")
		b.WriteString(input.View())
		b.WriteString("\n")
	}
	if m.err != "" {
		b.WriteString("\n")
		b.WriteString(errorStyle.Render(m.err))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(dimStyle.Render("enter/↓ next • ↑/shift+tab back • tab accept suggestion • ctrl+n/ctrl+p cycle suggestions • ctrl+k compilation • ctrl+s save • esc cancel"))
	return boxStyle.Render(b.String())
}

func containsFold(values []string, v string) bool {
	for _, existing := range values {
		if strings.EqualFold(existing, v) {
			return true
		}
	}
	return false
}
