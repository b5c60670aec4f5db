package indexer

// sqlite models

type Height struct {
	Id     uint64 `gorm:"primaryKey" json:"id"`
	Height uint64 `json:"height"`
}

type Proposal struct {
	Id              string `gorm:"primaryKey" json:"id"`
	Index           uint64 `gorm:"index" json:"index"`
	AuthorAddress   string `gorm:"index" json:"author_address"`
	Title           string `json:"title"`
	Contents        string `json:"contents"`
	Category        string `json:"category"`
	Amount          uint64 `json:"amount"`
	Stage           string `json:"stage"`
	Outcome         string `json:"outcome"`
	NewHeight       uint64 `json:"new_height"`
	VotingHeight    uint64 `json:"voting_height"`
	CompletedHeight uint64 `json:"completed_height"`
}

type Comment struct {
	Id            uint64 `gorm:"primaryKey;autoIncrement" json:"id"`
	Proposal      string `gorm:"uniqueIndex:idx_comment_seq" json:"proposal"`
	Seq           uint64 `gorm:"uniqueIndex:idx_comment_seq" json:"seq"`
	AuthorAddress string `json:"author_address"`
	Text          string `json:"text"`
	Height        uint64 `json:"height"`
}

// Vote is the latest ballot of a voter on a proposal.
type Vote struct {
	Id           uint64 `gorm:"primaryKey;autoIncrement" json:"id"`
	Proposal     string `gorm:"uniqueIndex:idx_vote_voter" json:"proposal"`
	VoterAddress string `gorm:"uniqueIndex:idx_vote_voter" json:"voter_address"`
	Choice       bool   `json:"choice"`
	Height       uint64 `json:"height"`
}
