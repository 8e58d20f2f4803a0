package domain

const (
	AccessPublic  = "public"
	AccessPrivate = "private"
)

const (
	MaxBatchFiles     = 30
	MaxBatchSizeBytes = 100 * 1024 * 1024
)

type ItemStatus string

const (
	StatusOK    ItemStatus = "ok"
	StatusError ItemStatus = "error"
)

// UploadItem is one raw file within a batch. The bytes are owned by the
// request and discarded once the batch has been processed.
type UploadItem struct {
	Filename string
	Size     int64
	Data     []byte
}

// UploadBatch is one validated upload request. MainIndex, when set, picks
// the main photo explicitly and takes precedence over MainFirst; an
// out-of-range index means no photo is main, never an error.
type UploadBatch struct {
	EntityType string
	EntityID   string
	Access     string
	MainFirst  bool
	MainIndex  *int
	Items      []UploadItem
}

// MainItemIndex resolves which item, if any, becomes the main photo.
// Returns -1 when no item is main.
func (b *UploadBatch) MainItemIndex() int {
	if b.MainIndex != nil {
		if i := *b.MainIndex; i >= 0 && i < len(b.Items) {
			return i
		}
		return -1
	}
	if b.MainFirst && len(b.Items) > 0 {
		return 0
	}
	return -1
}

// TotalSize is the aggregate byte size of all items in the batch.
func (b *UploadBatch) TotalSize() int64 {
	var total int64
	for _, it := range b.Items {
		total += it.Size
	}
	return total
}

// ItemResult is the outcome for a single item. Every input item yields
// exactly one result, in input order.
type ItemResult struct {
	Status ItemStatus `json:"status"`
	URL    string     `json:"url,omitempty"`
	Error  string     `json:"error,omitempty"`
	File   string     `json:"file,omitempty"`
}

type BatchResult struct {
	Results []ItemResult `json:"results"`
}

// PhotoTask describes one successfully stored photo for the downstream
// consumer. Field names match the job payload the main API expects.
type PhotoTask struct {
	EntityType string `json:"entity_type"`
	EntityID   string `json:"entity_id"`
	AgencyID   string `json:"agency_id"`
	UserID     string `json:"user_id"`
	FileURL    string `json:"file_url"`
	IsMain     bool   `json:"is_main"`
	Position   int    `json:"position"`
	Access     string `json:"access"`
}

// PhotoDeletion notifies the downstream consumer that stored photos were
// removed and their metadata should be dropped as well.
type PhotoDeletion struct {
	EntityType string   `json:"entity_type"`
	EntityID   string   `json:"entity_id"`
	FileURLs   []string `json:"file_urls"`
}

type DeleteRequest struct {
	EntityType string
	EntityID   string
	Keys       []string
}

// DeleteResult partitions the requested keys. A key lands in Failed when
// the object did not exist, the store call failed, or the caller does not
// own it; none of those abort the remaining keys.
type DeleteResult struct {
	Deleted []string `json:"deleted"`
	Failed  []string `json:"failed"`
}

// SignedLink is one entry of a batch presign response.
type SignedLink struct {
	Key    string     `json:"key"`
	URL    string     `json:"url,omitempty"`
	Error  string     `json:"error,omitempty"`
	Status ItemStatus `json:"status"`
}
