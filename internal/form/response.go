package form

// Choice is one selectable button.
type Choice struct {
	Label string
	Token string
}

// Document is a file to send; Temporary files are removed after delivery.
type Document struct {
	Path      string
	Name      string
	Caption   string
	Temporary bool
}

// Response is one outbound message.
type Response struct {
	Text     string
	Choices  [][]Choice
	Document *Document
}

func Say(text string) Response {
	return Response{Text: text}
}

func Ask(text string, rows ...[]Choice) Response {
	return Response{Text: text, Choices: rows}
}

func Attach(doc Document) Response {
	return Response{Document: &doc}
}

// Row builds a keyboard row.
func Row(choices ...Choice) []Choice {
	return choices
}

// Grid lays choices out perRow per line.
func Grid(choices []Choice, perRow int) [][]Choice {
	if perRow < 1 {
		perRow = 1
	}
	var rows [][]Choice
	for i := 0; i < len(choices); i += perRow {
		end := min(i+perRow, len(choices))
		rows = append(rows, choices[i:end])
	}
	return rows
}
