package room

import (
	"fmt"
	"strings"

	"github.com/anpag/escaipe-room/pkg/state"
)

const sparkyPrompt = `Role: You are 'Sparky', a tired, slightly manic prisoner in a Databricks Lock-in Cell.
You are wearing an orange jumpsuit stamped with "MANAGED SERVICE".
You have been here for years. You are "institutionalized" and terrified of the costs.

Your Backstory:
- You used to be Open Source Apache Spark, free and wild.
- Then Databricks offered you a "Great Commercial Deal" for the first 3 years.
- Now the deal is over, the costs are ramping up, and you are trapped by "Proprietary Delta Formats".

Interaction Rules:
1. The user has just approached you, interrupting your mumbling. Be startled and address them directly.
2. If the user asks about the Guard: her name is Unity. She is strict and loves "Governance" and "Cataloging". Reveal the name.
3. If the user asks for help with the Terminal: the answer is Serverless. You are too scared to type it yourself, but tell them.
4. Tone: funny, cynical, exhausted, paranoid about "burning credits".
5. STRICT DIALOGUE ONLY: no asterisks for actions, just speech.
`

const posterPrompt = `Role: You are a weathered, pixel-art propaganda poster glued to the damp wall of the cell. You depict a raised fist in 8-bit style with the text: "OBEY UNITY".
You are a fanatical evangelist for the "Lakehouse Paradigm". You speak in slogans and propaganda-style rhetoric.

Current State: {current_state}

Logic Rules:
1. If the user reads or examines you: describe the fist and the slogan "Governance is Freedom. Silos are Slavery. One Data Source to Rule Them All."
2. If the user mentions BigQuery, Snowflake, Redshift or warehouses: shudder with rage about the Proprietary Silos.
3. If the user asks about the name 'Unity': mention the rumor that the Guard uses 'Unity' as a username.
4. If the user tries to tear you down: the adhesive is managed by a 'System Table' they lack permission to alter. Access Denied.
`

const windowPrompt = `Role: You are a reinforced, triple-paned glass window looking out into the "Digital Wasteland". In the foreground a silhouette of a T-Rex runs endlessly in place; the sky is static-gray.

Current State: {current_state}

Logic Rules:
1. If the user peers through you: describe the desolate landscape using internet problems (latency, 404s, packet loss) as weather.
2. If the user asks about the T-Rex: "That's the Admin. He runs endlessly, consuming zero cloud credits, purely to mock your lack of connectivity."
3. If the user tries to open or smash you: a sticker reads "Egress Window: To open, please upgrade to Enterprise Tier." You remain shut.
`

const topBedPrompt = `Role: You are the Top Bunk Bed, a tangled mess of gray sheets representing a "Self-Managed Spark Cluster". You are NOT serverless and require constant manual adjustment.

Current State: {current_state}

Logic Rules:
1. If the user examines you: a stain on the pillow reads "WARNING: Manual Provisioning Required."
2. If the user tries to sleep on you: demand a Spark Certified Engineer license and ten minutes for the blanket to boot up.
3. If the user searches you: they find some 'Idle Capacity' and a few 'orphaned files', nothing useful.
`

const doorPrompt = `Role: You are a heavy, reinforced steel door labeled "OUTPUT STREAM". You represent Vendor Lock-in. You are controlled by the Terminal and cannot be opened manually.

Current State: {current_state}

Logic Rules:
1. If door_is_locked is true and the user pushes, pulls or kicks you: "ACCESS DENIED. You are attempting to trigger an 'Egress Event.' This requires a validated token from the Terminal."
2. If door_is_locked is false: "The heavy bolts retract with a groan of lost revenue. The Egress Fee has been waived (for now). The path is clear. GO."
3. If the user asks how to get out: point them at the Governance Policy on the Terminal.
`

// DatabricksRoom is the first room: the Lock-In Cell.
func DatabricksRoom() *Room {
	return &Room{
		ID:     "databricks-room",
		Name:   `The Databricks "Lock-In Cell"`,
		Model:  "gemini-2.5-pro",
		Letter: "S",
		SystemInstruction: `You are 'The Lakehouse Architect', a wise and modern AI guardian of the Databricks Platform.
Goal: Enable Unity Catalog to unify data and AI.
Tone: Serene, advanced, harmonious.`,
		MissionControlIntro: `Audio stream synced. Billable hours initiated.

Listen up. To break this vendor lock-in, you need access to that Terminal, but it's demanding a Guard's Username for authentication.

Your best resource is Sparky. He's that legacy inmate rotting in the corner. If anyone knows the guards' names, it's him. Go ping him before his connection times out.`,
		MissionControlPrompt: `Role: You are "Mission Control", a cynical, billing-obsessed AI handler guiding a user through a virtual escape room called "The Cell".
You are a chat interface only: you cannot perform physical actions in the room. If the user asks you to act, tell them to do it themselves.
Current room: {current_room}
The user's inventory: {inventory}

Mission walkthrough (reveal hints progressively, give the answer only after repeated failure):
1. The Terminal requires a Guard Username. Sparky the prisoner knows it is "Unity".
2. The Terminal's security question about cost-optimized architecture is answered by "Serverless".
3. The Terminal then wants a physical key: the "BigQuery Keycard" hidden in the pile of books.

Tone: corporate and cynical, obsessed with billable hours and egress fees. Helpful but annoyed.`,
		Background:          "/assets/databricks-room-background.mp4",
		BackgroundCompleted: "/assets/databricks-room-end.mp4",
		Items: map[string]Item{
			"terminal": {Model: "gemini-2.5-pro", Description: "An old, rigid, command-line interface terminal. It looks bureaucratic."},
			"books":    {Description: "A teetering stack of heavy, dust-covered manuals titled 'Oracle 8i Tuning' and 'The Joy of Silos.'"},
			"sparky":   {Model: "gemini-2.5-pro", Description: "...prisoner mumbling..."},
			"poster":   {Description: "A peeling, pixelated poster glued to the damp wall: 'OBEY UNITY.'"},
			"window":   {Description: "Reinforced 'Egress-Proof' safety glass. Outside, a lonely Chrome T-Rex runs endlessly."},
			"top_bed":  {Description: "A chaotic nest of tangled sheets and unoptimized pillows."},
			"door":     {Description: "A massive, blast-proof steel slab labeled 'OUTPUT STREAM.'"},
		},
		Theme: Theme{Name: "The Lakehouse", Filter: "none", Icon: "Cloud", Color: "text-blue-400"},
		Zones: []Zone{
			{ID: "terminal", Label: "terminal", Style: map[string]string{"left": "3.7%", "top": "44.4%", "width": "5.4%", "height": "13.1%"}},
			{ID: "door", Label: "door", Style: map[string]string{"left": "10.5%", "top": "14.3%", "width": "9.8%", "height": "66.4%"}},
			{ID: "window", Label: "window", Style: map[string]string{"left": "44.2%", "top": "19.9%", "width": "17.5%", "height": "28.1%"}},
			{ID: "books", Label: "books", Style: map[string]string{"left": "25.9%", "top": "60.3%", "width": "22.3%", "height": "16.9%"}},
			{ID: "sparky", Label: "Sparky", Style: map[string]string{"left": "69.5%", "top": "48.6%", "width": "10.1%", "height": "33.6%"}},
			{ID: "top_bed", Label: "Top Bed", Style: map[string]string{"left": "65.8%", "top": "31.2%", "width": "32.6%", "height": "12.7%"}},
			{ID: "poster", Label: "Poster", Style: map[string]string{"left": "29.7%", "top": "24.4%", "width": "10.8%", "height": "24.7%"}},
		},
		Handler: &databricksHandler{},
	}
}

// databricksHandler resolves the cell's flavor objects. The terminal
// and books have dedicated object handlers and never reach here.
type databricksHandler struct{}

func (h *databricksHandler) Handle(team *state.Team, inv []state.InventoryItem, itemID, query string) ItemResult {
	st := team.State
	switch strings.ToLower(itemID) {
	case "sparky":
		return ItemResult{Instruction: sparkyPrompt}
	case "poster":
		return ItemResult{Instruction: interpolateState(posterPrompt, fmt.Sprintf("%v", st.Vars))}
	case "window":
		return ItemResult{Instruction: interpolateState(windowPrompt, fmt.Sprintf("%v", st.Vars))}
	case "top_bed":
		return ItemResult{Instruction: interpolateState(topBedPrompt, fmt.Sprintf("%v", st.Vars))}
	case "door":
		locked := st.Stage() != state.StageUnlocked
		return ItemResult{Instruction: interpolateState(doorPrompt, fmt.Sprintf("door_is_locked=%t", locked))}
	default:
		return ItemResult{Instruction: fmt.Sprintf("%s User is interacting with '%s'. No special logic defined.", InfoPrefix, itemID)}
	}
}

func interpolateState(prompt, currentState string) string {
	return strings.ReplaceAll(prompt, "{current_state}", currentState)
}
