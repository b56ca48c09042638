package internal

type InputType string

const (
	InputCSV  InputType = "csv"
	InputXLSX InputType = "xlsx"
	InputHTML InputType = "html"
)

// ItemRecord is one qualifying inventory row. KeepQuantity is always
// max(SafetyStock, MaxOut) and greater than zero.
type ItemRecord struct {
	Name              string `json:"name"`
	Price             string `json:"price"`
	KeepQuantity      int    `json:"keepQuantity"`
	SafetyStock       int    `json:"safetyStock"`
	MaxOut            int    `json:"maxOut"`
	PrescriptionCount string `json:"prescriptionCount"`
	PatientCount      string `json:"patientCount"`
}

// Slot is a single card position on a page. A nil Item is an empty card.
type Slot struct {
	Item *ItemRecord
}

func (s Slot) Empty() bool {
	return s.Item == nil
}

type Page struct {
	Number int
	Slots  []Slot
}

func (p Page) Filled() int {
	n := 0
	for _, s := range p.Slots {
		if !s.Empty() {
			n++
		}
	}
	return n
}

type RunStatus string

const (
	RunOK     RunStatus = "ok"
	RunFailed RunStatus = "failed"
)

type RunRow struct {
	ID        string
	Source    string
	InputType string
	Charset   string
	Hash      string
	Status    RunStatus
	Failure   string
	Items     int
	Pages     int
	CreatedAt string
}

type MessageRow struct {
	ID         int
	Provider   string
	MessageID  string
	Subject    string
	Sender     string
	ReceivedAt string
	Hash       string
	Status     string
	RawRef     string
}

type FetchedMailMessage struct {
	Provider   string
	MessageID  string
	Subject    string
	From       string
	ReceivedAt string
	Raw        []byte
}
