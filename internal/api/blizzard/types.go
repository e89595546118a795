package blizzard

type namedRef struct {
	Name string `json:"name"`
}

type typedRef struct {
	Type string `json:"type"`
	Name string `json:"name"`
}

// Character is the profile summary of a WoW Classic character.
type Character struct {
	ID             int64    `json:"id"`
	Name           string   `json:"name"`
	Level          int      `json:"level"`
	Race           namedRef `json:"race"`
	CharacterClass namedRef `json:"character_class"`
	Faction        typedRef `json:"faction"`
	Guild          namedRef `json:"guild"`
	Realm          struct {
		Slug string `json:"slug"`
		Name string `json:"name"`
	} `json:"realm"`
	IsGhost      bool  `json:"is_ghost"`
	LastLoginUTC int64 `json:"last_login_timestamp"`
}

// Equipment lists what the character currently wears.
type Equipment struct {
	EquippedItems []EquippedItem `json:"equipped_items"`
}

type EquippedItem struct {
	Item struct {
		ID int64 `json:"id"`
	} `json:"item"`
	Slot typedRef `json:"slot"`
}

// Item is the static item definition.
type Item struct {
	ID            int64    `json:"id"`
	Name          string   `json:"name"`
	Quality       typedRef `json:"quality"`
	Level         int      `json:"level"`
	RequiredLevel int      `json:"required_level"`
	ItemClass     namedRef `json:"item_class"`
	InventoryType typedRef `json:"inventory_type"`
}

// QualityName returns the display quality (e.g. "Epic").
func (i Item) QualityName() string {
	return i.Quality.Name
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
}
