package putio

// Transfer is a cloud transfer as returned by the transfers endpoints.
// Most fields are optional in the API; absent values stay nil.
type Transfer struct {
	ID             int64   `json:"id"`
	Hash           *string `json:"hash"`
	Name           *string `json:"name"`
	Size           *int64  `json:"size"`
	Downloaded     *int64  `json:"downloaded"`
	FinishedAt     *string `json:"finished_at"`
	EstimatedTime  *int64  `json:"estimated_time"`
	Status         string  `json:"status"`
	StartedAt      *string `json:"started_at"`
	ErrorMessage   *string `json:"error_message"`
	FileID         *int64  `json:"file_id"`
	UserfileExists bool    `json:"userfile_exists"`
}

// Downloadable reports whether the transfer has produced a file tree that can
// be fetched. The file_id only appears once the cloud has finished fetching.
func (t *Transfer) Downloadable() bool {
	return t.FileID != nil
}

// DisplayName returns the transfer name, or "Unknown" when the API has not
// assigned one yet.
func (t *Transfer) DisplayName() string {
	if t.Name == nil {
		return "Unknown"
	}
	return *t.Name
}

// HashOrEmpty returns the info hash or "" when not yet known.
func (t *Transfer) HashOrEmpty() string {
	if t.Hash == nil {
		return ""
	}
	return *t.Hash
}

// FileTypeFolder is the file_type value the API uses for directories.
const FileTypeFolder = "FOLDER"

// File is one node of a stored file tree.
type File struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	FileType    string `json:"file_type"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
}

// IsDir reports whether the file is a folder.
func (f *File) IsDir() bool {
	return f.FileType == FileTypeFolder
}

// FileList is the files/list response: the children of the queried folder
// plus the queried folder itself as Parent.
type FileList struct {
	Files  []File `json:"files"`
	Parent File   `json:"parent"`
}

// AccountInfo is the account/info payload used for the startup credential check.
type AccountInfo struct {
	Username      string `json:"username"`
	Mail          string `json:"mail"`
	AccountActive bool   `json:"account_active"`
}

// Wire envelopes.
type listTransfersResponse struct {
	Transfers []Transfer `json:"transfers"`
}

type getTransferResponse struct {
	Transfer Transfer `json:"transfer"`
}

type urlResponse struct {
	URL string `json:"url"`
}

type accountResponse struct {
	Info AccountInfo `json:"info"`
}
