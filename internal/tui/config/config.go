package config

import (
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/viper"

	"github.com/Iron-Ham/waitroom/internal/config"
	"github.com/Iron-Ham/waitroom/internal/tui/styles"
)

// Item types
const (
	TypeString = "string"
	TypeBool   = "bool"
	TypeInt    = "int"
	TypeSelect = "select"
)

// ConfigItem represents a single configuration item
type ConfigItem struct {
	Key         string
	Label       string
	Description string
	Type        string
	Options     []string // For select type
}

// Category represents a group of config items
type Category struct {
	Name  string
	Items []ConfigItem
}

// Model is the Bubbletea model for the interactive config editor
type Model struct {
	categories    []Category
	categoryIndex int
	itemIndex     int
	width         int
	height        int
	editing       bool
	textInput     textinput.Model
	selectIndex   int
	errorMsg      string
	infoMsg       string
	quitting      bool
	modified      bool
}

func categories() []Category {
	return []Category{
		{
			Name: "Wait",
			Items: []ConfigItem{
				{Key: "wait.heartbeat_interval_seconds", Label: "Heartbeat Interval (s)", Description: "Seconds between heartbeats sent to a waiting agent", Type: TypeInt},
				{Key: "wait.default_timeout_seconds", Label: "Default Timeout (s)", Description: "Timeout used when register_and_wait omits timeout_seconds", Type: TypeInt},
				{Key: "wait.poll_interval_ms", Label: "Poll Interval (ms)", Description: "How often the mailbox is checked between heartbeats", Type: TypeInt},
				{Key: "wait.max_timeout_seconds", Label: "Max Timeout (s)", Description: "Largest timeout a caller may request (0 = no cap)", Type: TypeInt},
			},
		},
		{
			Name: "Store",
			Items: []ConfigItem{
				{Key: "store.backend", Label: "Backend", Description: "Where the pending message is kept", Type: TypeSelect, Options: config.ValidStoreBackends()},
				{Key: "store.path", Label: "Path", Description: "Record file or database (empty = backend default in the working directory)", Type: TypeString},
				{Key: "store.watch", Label: "Watch", Description: "Wake waiters on external writes to the record file", Type: TypeBool},
			},
		},
		{
			Name: "Server",
			Items: []ConfigItem{
				{Key: "server.addr", Label: "Address", Description: "Listen address for serve, dial address for clients", Type: TypeString},
				{Key: "server.name", Label: "Name", Description: "Server name reported by check_status", Type: TypeString},
				{Key: "server.write_timeout_seconds", Label: "Write Timeout (s)", Description: "Deadline for each websocket frame write", Type: TypeInt},
			},
		},
		{
			Name: "Logging",
			Items: []ConfigItem{
				{Key: "logging.enabled", Label: "Enabled", Description: "Write structured logs", Type: TypeBool},
				{Key: "logging.level", Label: "Level", Description: "Minimum log level", Type: TypeSelect, Options: config.ValidLogLevels()},
				{Key: "logging.dir", Label: "Directory", Description: "Directory for waitroom.log (empty = stderr)", Type: TypeString},
				{Key: "logging.max_size_mb", Label: "Max Size (MB)", Description: "Rotate the log file at this size", Type: TypeInt},
				{Key: "logging.max_backups", Label: "Max Backups", Description: "Rotated files to keep", Type: TypeInt},
				{Key: "logging.compress", Label: "Compress", Description: "Gzip rotated files", Type: TypeBool},
			},
		},
	}
}

// New creates a new config editor model
func New() Model {
	ti := textinput.New()
	ti.Focus()
	ti.CharLimit = 200
	ti.Width = 40

	return Model{
		categories: categories(),
		textInput:  ti,
	}
}

func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		m.errorMsg = ""
		m.infoMsg = ""

		if m.editing {
			return m.handleEditingKeypress(msg)
		}

		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit

		case "up", "k":
			m.itemIndex--
			if m.itemIndex < 0 {
				m.categoryIndex = (m.categoryIndex - 1 + len(m.categories)) % len(m.categories)
				m.itemIndex = len(m.categories[m.categoryIndex].Items) - 1
			}

		case "down", "j":
			m.itemIndex++
			if m.itemIndex >= len(m.categories[m.categoryIndex].Items) {
				m.categoryIndex = (m.categoryIndex + 1) % len(m.categories)
				m.itemIndex = 0
			}

		case "tab":
			m.categoryIndex = (m.categoryIndex + 1) % len(m.categories)
			m.itemIndex = 0

		case "shift+tab":
			m.categoryIndex = (m.categoryIndex - 1 + len(m.categories)) % len(m.categories)
			m.itemIndex = 0

		case "enter", " ":
			item := m.currentItem()
			switch item.Type {
			case TypeBool:
				viper.Set(item.Key, !viper.GetBool(item.Key))
				m.saveConfig()
			case TypeSelect:
				m.editing = true
				m.selectIndex = m.currentSelectIndex()
			default:
				m.editing = true
				m.textInput.SetValue(m.displayValue(item))
				m.textInput.Focus()
			}

		case "r":
			m.resetCurrentToDefault()
		}
	}

	return m, nil
}

func (m Model) handleEditingKeypress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	item := m.currentItem()

	switch msg.String() {
	case "esc":
		m.editing = false
		m.textInput.SetValue("")
		return m, nil

	case "enter":
		value := m.textInput.Value()
		if item.Type == TypeSelect {
			value = item.Options[m.selectIndex]
		}
		if err := Apply(item, value); err != nil {
			m.errorMsg = err.Error()
			return m, nil
		}
		m.saveConfig()
		m.editing = false
		m.textInput.SetValue("")
		return m, nil

	case "up", "k":
		if item.Type == TypeSelect {
			m.selectIndex = (m.selectIndex - 1 + len(item.Options)) % len(item.Options)
			return m, nil
		}

	case "down", "j":
		if item.Type == TypeSelect {
			m.selectIndex = (m.selectIndex + 1) % len(item.Options)
			return m, nil
		}
	}

	if item.Type != TypeSelect {
		var cmd tea.Cmd
		m.textInput, cmd = m.textInput.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if m.width == 0 {
		return "Loading..."
	}

	var b strings.Builder

	b.WriteString(styles.Header.Width(m.width - 4).Render("waitroom configuration"))
	b.WriteString("\n\n")

	configPath := viper.ConfigFileUsed()
	if configPath == "" {
		configPath = config.ConfigFile() + " (not created)"
	}
	b.WriteString(styles.Muted.Render("Config file: " + configPath))
	b.WriteString("\n\n")

	for ci, cat := range m.categories {
		active := ci == m.categoryIndex
		catStyle := styles.Muted.Bold(true)
		if active {
			catStyle = styles.Primary.Bold(true)
		}
		b.WriteString(catStyle.Render(fmt.Sprintf("[ %s ]", cat.Name)))
		b.WriteString("\n")
		for ii, item := range cat.Items {
			b.WriteString(m.renderItem(item, active && ii == m.itemIndex))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	if m.editing {
		b.WriteString(m.renderEditOverlay())
	} else {
		b.WriteString(styles.Muted.Render(m.currentItem().Description))
		b.WriteString("\n")
	}

	if m.errorMsg != "" {
		b.WriteString("\n")
		b.WriteString(styles.ErrorMsg.Render("Error: " + m.errorMsg))
	}
	if m.infoMsg != "" {
		b.WriteString("\n")
		b.WriteString(styles.SuccessMsg.Render(m.infoMsg))
	}

	b.WriteString("\n")
	b.WriteString(m.renderHelp())
	return b.String()
}

func (m Model) renderItem(item ConfigItem, selected bool) string {
	label := fmt.Sprintf("%-25s", item.Label)
	value := m.displayValue(item)
	if value == "" {
		value = "(default)"
	}

	if selected {
		return fmt.Sprintf("  %s %s  %s",
			styles.Secondary.Render(">"),
			styles.Text.Bold(true).Render(label),
			styles.Primary.Render(value))
	}
	return fmt.Sprintf("    %s  %s", styles.Muted.Render(label), styles.Text.Render(value))
}

func (m Model) renderEditOverlay() string {
	item := m.currentItem()

	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(styles.PrimaryColor).
		Padding(1, 2).
		Width(50)

	var content strings.Builder
	if item.Type == TypeSelect {
		fmt.Fprintf(&content, "Select %s:\n\n", item.Label)
		for i, opt := range item.Options {
			if i == m.selectIndex {
				content.WriteString(styles.DropdownItemSelected.Render(" > " + opt + " "))
			} else {
				content.WriteString(styles.DropdownItem.Render("   " + opt + " "))
			}
			content.WriteString("\n")
		}
		content.WriteString("\n" + styles.Muted.Render("j/k to select, enter to confirm, esc to cancel"))
	} else {
		fmt.Fprintf(&content, "Edit %s:\n\n", item.Label)
		content.WriteString(m.textInput.View())
		content.WriteString("\n\n" + styles.Muted.Render("enter to save, esc to cancel"))
	}

	return "\n" + box.Render(content.String())
}

func (m Model) renderHelp() string {
	key := styles.HelpKey.Render
	if m.editing {
		return styles.HelpBar.Render(key("enter") + " save  " + key("esc") + " cancel")
	}
	return styles.HelpBar.Render(
		key("j/k") + " navigate  " +
			key("tab") + " next category  " +
			key("enter/space") + " edit  " +
			key("r") + " reset  " +
			key("q") + " quit",
	)
}

func (m Model) currentItem() ConfigItem {
	return m.categories[m.categoryIndex].Items[m.itemIndex]
}

func (m Model) displayValue(item ConfigItem) string {
	switch item.Type {
	case TypeBool:
		return strconv.FormatBool(viper.GetBool(item.Key))
	case TypeInt:
		return strconv.Itoa(viper.GetInt(item.Key))
	default:
		return viper.GetString(item.Key)
	}
}

func (m Model) currentSelectIndex() int {
	item := m.currentItem()
	if i := slices.Index(item.Options, viper.GetString(item.Key)); i >= 0 {
		return i
	}
	return 0
}

// Apply validates value for item and sets it in viper. The whole
// configuration is re-validated so cross-field rules (poll interval within
// the heartbeat interval, default timeout within the cap) hold; on failure
// the previous value is restored.
func Apply(item ConfigItem, value string) error {
	value = strings.TrimSpace(value)
	prev := viper.Get(item.Key)
	switch item.Type {
	case TypeInt:
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("expected integer value")
		}
		if n < 0 {
			return fmt.Errorf("value must be non-negative")
		}
		viper.Set(item.Key, n)
	case TypeBool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("expected true or false")
		}
		viper.Set(item.Key, b)
	case TypeSelect:
		if !slices.Contains(item.Options, value) {
			return fmt.Errorf("invalid option: %s (valid: %s)", value, strings.Join(item.Options, ", "))
		}
		viper.Set(item.Key, value)
	default:
		viper.Set(item.Key, value)
	}

	var cfg config.Config
	if err := viper.Unmarshal(&cfg); err == nil {
		if errs := cfg.Validate(); len(errs) > 0 {
			viper.Set(item.Key, prev)
			return config.ValidationErrors(errs)
		}
	}
	return nil
}

// Lookup returns the editable item for key.
func Lookup(key string) (ConfigItem, bool) {
	for _, item := range Items() {
		if item.Key == key {
			return item, true
		}
	}
	return ConfigItem{}, false
}

// Items returns every editable item in display order.
func Items() []ConfigItem {
	var items []ConfigItem
	for _, cat := range categories() {
		items = append(items, cat.Items...)
	}
	return items
}

func (m *Model) saveConfig() {
	if err := os.MkdirAll(config.ConfigDir(), 0o755); err != nil {
		m.errorMsg = fmt.Sprintf("Failed to create config directory: %v", err)
		return
	}
	if err := viper.WriteConfigAs(config.ConfigFile()); err != nil {
		m.errorMsg = fmt.Sprintf("Failed to save config: %v", err)
		return
	}
	m.infoMsg = "Saved!"
	m.modified = true
}

// DefaultValues maps each editable key to its default.
func DefaultValues() map[string]any {
	d := config.Default()
	return map[string]any{
		"wait.heartbeat_interval_seconds": d.Wait.HeartbeatIntervalSeconds,
		"wait.default_timeout_seconds":    d.Wait.DefaultTimeoutSeconds,
		"wait.poll_interval_ms":           d.Wait.PollIntervalMs,
		"wait.max_timeout_seconds":        d.Wait.MaxTimeoutSeconds,
		"store.backend":                   d.Store.Backend,
		"store.path":                      d.Store.Path,
		"store.watch":                     d.Store.Watch,
		"server.addr":                     d.Server.Addr,
		"server.name":                     d.Server.Name,
		"server.write_timeout_seconds":    d.Server.WriteTimeoutSeconds,
		"logging.enabled":                 d.Logging.Enabled,
		"logging.level":                   d.Logging.Level,
		"logging.dir":                     d.Logging.Dir,
		"logging.max_size_mb":             d.Logging.MaxSizeMB,
		"logging.max_backups":             d.Logging.MaxBackups,
		"logging.compress":                d.Logging.Compress,
	}
}

func (m *Model) resetCurrentToDefault() {
	item := m.currentItem()
	if v, ok := DefaultValues()[item.Key]; ok {
		viper.Set(item.Key, v)
		m.saveConfig()
		m.infoMsg = fmt.Sprintf("Reset %s to default", item.Label)
	}
}

// Run starts the interactive config editor
func Run() error {
	p := tea.NewProgram(New(), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
