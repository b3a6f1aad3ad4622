package main

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/gorilla/websocket"
	"github.com/muesli/reflow/wordwrap"

	"github.com/anpag/escaipe-room/pkg/chat"
	"github.com/anpag/escaipe-room/pkg/room"
)

const PlaceHolderText = "Type your message here..."

// channelOrder lists the room objects a player can talk to, in the
// order they appear in the picker.
var channelOrder = []string{"coordinator", "terminal", "books", "sparky"}

// channelLabels maps object IDs to the speaker names shown in chat.
var channelLabels = map[string]string{
	"coordinator": "Mission Control",
	"terminal":    "Terminal",
	"books":       "Bookshelf",
	"sparky":      "Sparky",
}

// ConsoleUI is the BubbleTea model that runs the UI.
// https://github.com/charmbracelet/bubbletea
type ConsoleUI struct {
	config       *ConsoleConfig
	client       *http.Client
	team         *TeamInfo
	conn         *websocket.Conn
	channel      string
	history      []chat.HistoryEntry
	chatViewport viewport.Model
	metaViewport viewport.Model
	textarea     textarea.Model
	ready        bool
	width        int
	height       int
	err          error
	loading      bool

	// Channel selection state
	showChannelModal bool
	selectedChannel  int
	openingChannel   bool

	// Quit confirmation state
	showQuitModal bool

	// Progress bar state
	progressTick int
}

type channelOpenedMsg struct {
	channel string
	conn    *websocket.Conn
	history *chat.HistoryPayload
	err     error
}

type channelResponseMsg struct {
	response *chat.ChannelResponse
	err      error
}

type teamRefreshMsg struct {
	team *TeamInfo
	err  error
}

type progressTickMsg struct{}

var (
	chatPanelStyle = lipgloss.NewStyle().
			PaddingTop(2).
			PaddingBottom(1).
			PaddingLeft(3).
			PaddingRight(0)

	metaPanelStyle = lipgloss.NewStyle().
			PaddingTop(2).
			PaddingBottom(0).
			PaddingLeft(0).
			PaddingRight(2)

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")). // pink
			Bold(true)

	speakerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("212")). // purple
			Bold(true)

	agentStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("86")) // green

	userStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")) // teal

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")) // red

	loadingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")) // yellow

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")) // dark grey

	modalStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(1, 2).
			Background(lipgloss.Color("235")).
			Foreground(lipgloss.Color("255"))

	modalTitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Bold(true).
			Align(lipgloss.Center)

	modalItemStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("255"))

	modalSelectedItemStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("0")).
				Background(lipgloss.Color("205")).
				Bold(true)
)

var separatorStyle = lipgloss.NewStyle().
	Foreground(lipgloss.Color("240")) // dark grey

func NewConsoleUI(cfg *ConsoleConfig, client *http.Client, team *TeamInfo) ConsoleUI {
	ta := textarea.New()
	ta.Placeholder = PlaceHolderText
	ta.Focus()
	ta.Prompt = promptStyle.Render(":: ")
	ta.CharLimit = 1000
	ta.SetWidth(50)
	ta.SetHeight(3)
	ta.ShowLineNumbers = false

	chatVp := viewport.New(50, 20)
	chatVp.MouseWheelEnabled = true

	metaVp := viewport.New(20, 20)

	return ConsoleUI{
		config:           cfg,
		client:           client,
		team:             team,
		textarea:         ta,
		chatViewport:     chatVp,
		metaViewport:     metaVp,
		ready:            false,
		showChannelModal: true,
		selectedChannel:  0,
	}
}

func speakerFor(channel string) string {
	if label, ok := channelLabels[channel]; ok {
		return label
	}
	return room.DisplayName(channel)
}

// writeChatContent rebuilds the chat viewport from the channel history
// for the current viewport width.
func (m *ConsoleUI) writeChatContent() {
	chatWidth := m.chatViewport.Width - 6 // Account for left(3) + right(3) padding

	var content strings.Builder
	content.WriteString(titleStyle.Render("ESCAIPE ROOM") + "\n\n")
	content.WriteString(fmt.Sprintf("Channel: %s\n\n", speakerFor(m.channel)))
	content.WriteString(separatorStyle.Render(strings.Repeat("─", max(chatWidth-6, 1))) + "\n\n")

	for _, entry := range m.history {
		switch entry.Role {
		case "ai":
			content.WriteString(formatAgentResponse(entry.Text, speakerFor(m.channel), chatWidth) + "\n\n")
		case "user":
			content.WriteString(userStyle.Render("You: ") + wordwrap.String(entry.Text, chatWidth-6) + "\n\n")
		}
	}

	if m.loading {
		content.WriteString(m.renderProgressBar())
	}

	m.chatViewport.SetContent(content.String())
	m.chatViewport.GotoBottom()
}

func writeMetadata(team *TeamInfo, channel string) string {
	var content strings.Builder
	content.WriteString(titleStyle.Render("TEAM") + "\n\n")

	content.WriteString("Name:\n")
	content.WriteString(team.Name + "\n\n")

	content.WriteString("Team ID:\n")
	content.WriteString(team.ID.String()[:8] + "...\n\n")

	content.WriteString("Room:\n")
	content.WriteString(team.GameState.CurrentRoom + "\n\n")

	content.WriteString("Channel:\n")
	content.WriteString(speakerFor(channel) + "\n\n")

	if team.GameState.RoomCompleted {
		content.WriteString("Room complete!\n\n")
	}

	content.WriteString("Letters:\n")
	if len(team.GameState.CollectedLetters) == 0 {
		content.WriteString("None yet\n\n")
	} else {
		content.WriteString(strings.Join(team.GameState.CollectedLetters, " ") + "\n\n")
	}

	content.WriteString("Inventory:\n")
	if len(team.Inventory) == 0 {
		content.WriteString("Empty\n")
	} else {
		for _, item := range team.Inventory {
			if item.Icon != "" {
				content.WriteString(fmt.Sprintf("• %s %s\n", item.Icon, item.Name))
			} else {
				content.WriteString(fmt.Sprintf("• %s\n", item.Name))
			}
		}
	}

	content.WriteString("\n")
	content.WriteString("Commands:\n")
	content.WriteString("• Ctrl+C: Quit\n")
	content.WriteString("• Enter: Send\n")
	content.WriteString("• /help: Help\n")
	content.WriteString("• /switch: Channel\n")
	content.WriteString("• /state: State\n")

	return content.String()
}

func (m ConsoleUI) Init() tea.Cmd {
	return textarea.Blink
}

func (m ConsoleUI) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	// Handle channel modal first
	if m.showChannelModal {
		return m.updateChannelModal(msg)
	}

	// Handle quit modal second
	if m.showQuitModal {
		return m.updateQuitModal(msg)
	}

	var (
		tiCmd tea.Cmd
		vpCmd tea.Cmd
		mvCmd tea.Cmd
	)

	switch msg := msg.(type) {
	case tea.MouseMsg:
		// Pass all mouse events to the chat viewport for text selection.
		// The viewport component ignores events outside its bounds.
		m.chatViewport, vpCmd = m.chatViewport.Update(msg)
		m.textarea, tiCmd = m.textarea.Update(msg)
		m.metaViewport, mvCmd = m.metaViewport.Update(msg)
		return m, tea.Batch(tiCmd, vpCmd, mvCmd)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resizePanels()
		m.writeChatContent()
		m.metaViewport.SetContent(writeMetadata(m.team, m.channel))
		m.ready = true

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.showQuitModal = true
			return m, nil
		case tea.KeyEnter:
			if m.loading {
				return m, nil
			}

			input := strings.TrimSpace(m.textarea.Value())
			if input == "" {
				return m, nil
			}

			if strings.HasPrefix(input, "/") {
				return m.handleCommand(input)
			}

			m.textarea.Reset()
			m.loading = true
			m.progressTick = 0 // Reset progress animation

			m.history = append(m.history, chat.HistoryEntry{Role: "user", Text: input})
			m.writeChatContent()

			return m, tea.Batch(m.sendChannelMessage(input), progressTick())
		}

	case channelResponseMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			m.writeChatContent()
			currentContent := m.chatViewport.View()
			errorMsg := errorStyle.Render("Error: "+msg.err.Error()) + "\n\n"
			m.chatViewport.SetContent(currentContent + errorMsg)
			m.chatViewport.GotoBottom()
			return m, nil
		}
		m.history = append(m.history, chat.HistoryEntry{Role: "ai", Text: msg.response.Response})
		m.writeChatContent()
		if msg.response.Error != "" {
			currentContent := m.chatViewport.View()
			m.chatViewport.SetContent(currentContent + errorStyle.Render("("+msg.response.Error+")") + "\n\n")
		}
		m.chatViewport.GotoBottom()
		return m, m.refreshTeam()

	case teamRefreshMsg:
		if msg.err == nil && msg.team != nil {
			m.team = msg.team
			m.metaViewport.SetContent(writeMetadata(m.team, m.channel))
		}

	case progressTickMsg:
		if m.loading {
			m.progressTick++
			m.writeChatContent()     // Refresh the chat content to update the progress bar
			return m, progressTick() // Continue the animation
		}
	}

	// Update components for non-mouse events
	m.textarea, tiCmd = m.textarea.Update(msg)
	m.chatViewport, vpCmd = m.chatViewport.Update(msg)
	m.metaViewport, mvCmd = m.metaViewport.Update(msg)

	return m, tea.Batch(tiCmd, vpCmd, mvCmd)
}

func (m *ConsoleUI) resizePanels() {
	chatWidth := int(float64(m.width)*0.75) - 4
	metaWidth := m.width - chatWidth - 6

	m.chatViewport.Width = chatWidth - 2
	m.chatViewport.Height = m.height - 7
	m.metaViewport.Width = metaWidth - 2
	m.metaViewport.Height = m.height - 4
	m.textarea.SetWidth(chatWidth - 4)
}

func formatAgentResponse(response, speaker string, width int) string {
	prefix := speaker + ": "
	wrapped := wordwrap.String(response, max(width-len(prefix), 10))
	lines := strings.Split(wrapped, "\n")
	var formattedLines []string

	for i, line := range lines {
		if i == 0 {
			formattedLines = append(formattedLines, speakerStyle.Render(prefix)+agentStyle.Render(line))
			continue
		}
		formattedLines = append(formattedLines, agentStyle.Render(line))
	}

	return strings.Join(formattedLines, "\n")
}

func (m ConsoleUI) handleCommand(input string) (tea.Model, tea.Cmd) {
	cmd := strings.ToLower(strings.TrimSpace(input))

	switch cmd {
	case "/help":
		helpText := `
Commands:
• /help - Show this help
• /switch - Change channel
• /state - Show game state
• Ctrl+C - Quit

How to play:
• Type your actions and press Enter
• Talk to Mission Control for hints
• Inspect room objects on their channels
`
		currentContent := m.chatViewport.View()
		m.chatViewport.SetContent(currentContent + titleStyle.Render("Help:") + helpText + "\n")
		m.chatViewport.GotoBottom()

	case "/switch":
		if m.conn != nil {
			_ = m.conn.Close()
			m.conn = nil
		}
		m.history = nil
		m.textarea.Reset()
		m.showChannelModal = true
		return m, nil

	case "/state":
		var stateText strings.Builder
		stateText.WriteString(titleStyle.Render("Game State:") + "\n")
		stateText.WriteString(fmt.Sprintf("• current_room = %s\n", m.team.GameState.CurrentRoom))
		stateText.WriteString(fmt.Sprintf("• room_completed = %t\n", m.team.GameState.RoomCompleted))
		stateText.WriteString(fmt.Sprintf("• terminal_stage = %s\n", m.team.GameState.Stage()))
		for k, v := range m.team.GameState.Vars {
			stateText.WriteString(fmt.Sprintf("• %s = %v\n", k, v))
		}
		stateText.WriteString("\n")

		currentContent := m.chatViewport.View()
		m.chatViewport.SetContent(currentContent + stateText.String())
		m.chatViewport.GotoBottom()
	}

	m.textarea.Reset()
	return m, nil
}

func (m ConsoleUI) sendChannelMessage(message string) tea.Cmd {
	conn := m.conn
	return func() tea.Msg {
		if conn == nil {
			return channelResponseMsg{nil, fmt.Errorf("channel is not open")}
		}
		if err := sendText(conn, message); err != nil {
			return channelResponseMsg{nil, fmt.Errorf("failed to send message: %w", err)}
		}
		resp, err := readResponse(conn)
		if err != nil {
			return channelResponseMsg{nil, err}
		}
		return channelResponseMsg{resp, nil}
	}
}

func (m ConsoleUI) refreshTeam() tea.Cmd {
	return func() tea.Msg {
		team, err := getTeam(m.client, m.config.APIBaseURL, m.team.ID)
		return teamRefreshMsg{team, err}
	}
}

func (m ConsoleUI) openChannel(channel string) tea.Cmd {
	return func() tea.Msg {
		conn, history, err := dialChannel(m.config.APIBaseURL, m.team.ID, channel)
		return channelOpenedMsg{channel, conn, history, err}
	}
}

func (m ConsoleUI) updateChannelModal(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case channelOpenedMsg:
		m.openingChannel = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.err = nil
		m.conn = msg.conn
		m.channel = msg.channel
		m.history = msg.history.History
		m.showChannelModal = false
		if m.width > 0 && m.height > 0 {
			m.resizePanels()
		}
		m.writeChatContent()
		m.metaViewport.SetContent(writeMetadata(m.team, m.channel))
		m.textarea.Focus() // Ensure textarea gets focus when modal closes
		m.ready = true
		return m, textarea.Blink

	case tea.KeyMsg:
		if m.openingChannel {
			if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyEsc {
				return m, tea.Quit
			}
			return m, nil
		}

		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.showQuitModal = true
			return m, nil
		case tea.KeyUp:
			if m.selectedChannel > 0 {
				m.selectedChannel--
			}
		case tea.KeyDown:
			if m.selectedChannel < len(channelOrder)-1 {
				m.selectedChannel++
			}
		case tea.KeyEnter:
			m.err = nil
			m.openingChannel = true
			return m, m.openChannel(channelOrder[m.selectedChannel])
		}
	}

	return m, nil
}

func (m ConsoleUI) updateQuitModal(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc, tea.KeyEnter:
			return m.quit()
		default:
			switch msg.String() {
			case "y", "Y":
				return m.quit()
			case "n", "N":
				m.showQuitModal = false
				if m.showChannelModal {
					return m, nil
				}
				m.textarea.Focus()
				return m, textarea.Blink
			}
		}
	}

	return m, nil
}

func (m ConsoleUI) quit() (tea.Model, tea.Cmd) {
	if m.conn != nil {
		_ = m.conn.Close()
	}
	return m, tea.Quit
}

func (m ConsoleUI) renderQuitModal() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	var content strings.Builder
	content.WriteString(modalTitleStyle.Render("Quit Game?"))
	content.WriteString("\n\n")
	content.WriteString("Are you sure you want to leave the room?")
	content.WriteString("\n\n")
	content.WriteString(promptStyle.Render("Press Y to quit, N to continue, or Ctrl+C to force quit"))

	modal := modalStyle.Width(50).Render(content.String())

	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, modal, lipgloss.WithWhitespaceChars(" "))
}

func (m ConsoleUI) renderChannelModal() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	var content strings.Builder

	if m.openingChannel {
		content.WriteString(modalTitleStyle.Render("Opening Channel..."))
		content.WriteString("\n\n")
		content.WriteString(loadingStyle.Render("Establishing connection..."))
	} else if m.err != nil {
		content.WriteString(modalTitleStyle.Render("Error"))
		content.WriteString("\n\n")
		content.WriteString(errorStyle.Render(fmt.Sprintf("Failed to open channel: %v", m.err)))
		content.WriteString("\n\n")
		content.WriteString("Press Enter to retry or Ctrl+C to exit")
	} else {
		content.WriteString(modalTitleStyle.Render("Select a Channel"))
		content.WriteString("\n\n")

		for i, channel := range channelOrder {
			if i == m.selectedChannel {
				content.WriteString(modalSelectedItemStyle.Render(fmt.Sprintf("▶ %s", speakerFor(channel))))
			} else {
				content.WriteString(modalItemStyle.Render(fmt.Sprintf("  %s", speakerFor(channel))))
			}
			content.WriteString("\n")
		}

		content.WriteString("\n")
		content.WriteString(promptStyle.Render("Use ↑/↓ to navigate, Enter to select, Ctrl+C to exit"))
	}

	modal := modalStyle.Width(60).Render(content.String())

	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, modal, lipgloss.WithWhitespaceChars(" "))
}

func (m ConsoleUI) View() string {
	if m.showChannelModal {
		return m.renderChannelModal()
	}

	if m.showQuitModal {
		return m.renderQuitModal()
	}

	if !m.ready {
		return "\n  Initializing..."
	}

	chatWidth := int(float64(m.width)*0.75) - 4
	metaWidth := m.width - chatWidth - 6

	chatPanel := chatPanelStyle.Width(chatWidth).Height(m.height - 3).Render(
		lipgloss.JoinVertical(lipgloss.Left,
			m.chatViewport.View(),
			"", // Add empty line for spacing
			separatorStyle.Render(strings.Repeat("─", max(chatWidth-4, 1))),
			m.textarea.View(),
		),
	)

	metaPanel := metaPanelStyle.Width(metaWidth).Height(m.height - 2).Render(
		m.metaViewport.View(),
	)

	return lipgloss.JoinHorizontal(lipgloss.Top, chatPanel, metaPanel)
}

// renderProgressBar creates an animated progress bar for loading states
func (m ConsoleUI) renderProgressBar() string {
	usable := m.chatViewport.Width - 6
	if usable <= 0 {
		usable = 30 // fallback before sizing
	}

	if usable > 80 {
		usable = 80
	} else if usable < 10 {
		usable = 10
	}

	const totalFrames = 40
	frame := m.progressTick % totalFrames
	filled := (frame * usable) / totalFrames

	var bar strings.Builder
	for i := 0; i < usable; i++ {
		if i < filled {
			bar.WriteString("█")
		} else if i == filled && frame%4 < 2 {
			bar.WriteString("▓") // Blinking effect at the progress point
		} else {
			bar.WriteString("░")
		}
	}
	return separatorStyle.Render(bar.String())
}

// progressTick creates a command that sends a progress tick message
func progressTick() tea.Cmd {
	return tea.Tick(time.Millisecond*200, func(time.Time) tea.Msg {
		return progressTickMsg{}
	})
}
