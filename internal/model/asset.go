package model

import "time"

// Asset is an immutable binary blob identified by the sha256 of its bytes.
// Rows are created once and only removed by cascading deletion of the
// owning user.
type Asset struct {
	ID        string    // assets.id (uuid)
	OwnerID   *string   // assets.user_id, nil for system-generated assets
	MIME      string    // assets.mime
	Size      int64     // assets.size, always len(Bytes)
	SHA256    string    // assets.sha256, hex encoded and unique
	Bytes     []byte    // assets.bytes
	CreatedAt time.Time // assets.created_at
}

// Ref returns the metadata-only view of the asset.
func (a Asset) Ref() AssetRef {
	return AssetRef{ID: a.ID, MIME: a.MIME, Size: a.Size, CreatedAt: a.CreatedAt}
}

// AssetRef is the listing view of an asset.  It never carries the payload.
type AssetRef struct {
	ID        string    `json:"id"`
	URL       string    `json:"url"`
	MIME      string    `json:"mime"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"createdAt"`
}

// AssetURL is the retrieval path for an asset id.
func AssetURL(id string) string { return "/assets/" + id }

// Generation records which prompt produced (or re-produced) an asset.  Many
// generations may point at one asset when ingestion deduplicated the bytes.
type Generation struct {
	ID          string    // generations.id (uuid)
	UserID      string    // generations.user_id
	AssetID     string    // generations.asset_id
	Caption     string    // generations.caption
	ImagePrompt string    // generations.image_prompt
	Size        *string   // generations.size, e.g. "1024x1024"
	CreatedAt   time.Time // generations.created_at
}
