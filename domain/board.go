package domain

// Board is the aggregate snapshot served to the UI: every collection in one
// read. There is no transactionality across collections; a partial snapshot
// carries whichever collections could be read plus defaults for the rest.
type Board struct {
	Tasks    []Task   `json:"tasks"`
	Columns  []Column `json:"columns"`
	Assets   []Asset  `json:"assets"`
	Settings Settings `json:"settings"`
}
