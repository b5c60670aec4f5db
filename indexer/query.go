package indexer

const maxPageSize = 100

func pageArgs(page, pageSize int) (offset, limit int) {
	if page < 0 {
		page = 0
	}
	if pageSize <= 0 || pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return page * pageSize, pageSize
}

func (c *ChainIndexer) getProposalById(id string) (Proposal, error) {
	var proposal Proposal
	err := c.db.Where("id = ?", id).First(&proposal).Error
	return proposal, err
}

// getProposals lists proposals newest first, optionally filtered by author and stage.
func (c *ChainIndexer) getProposals(author, stage string, page, pageSize int) ([]Proposal, uint64, error) {
	var proposals []Proposal
	var total int64
	q := c.db.Model(&Proposal{})
	if author != "" {
		q = q.Where("author_address = ?", author)
	}
	if stage != "" {
		q = q.Where("stage = ?", stage)
	}
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	offset, limit := pageArgs(page, pageSize)
	if err := q.Order("\"index\" desc").Offset(offset).Limit(limit).Find(&proposals).Error; err != nil {
		return nil, 0, err
	}
	return proposals, uint64(total), nil
}

func (c *ChainIndexer) getCommentsByProposal(proposal string, page, pageSize int) ([]Comment, uint64, error) {
	var comments []Comment
	var total int64
	q := c.db.Model(&Comment{}).Where("proposal = ?", proposal)
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	offset, limit := pageArgs(page, pageSize)
	if err := q.Order("seq asc").Offset(offset).Limit(limit).Find(&comments).Error; err != nil {
		return nil, 0, err
	}
	return comments, uint64(total), nil
}

func (c *ChainIndexer) getVotes(proposal, voter string, page, pageSize int) ([]Vote, uint64, error) {
	var votes []Vote
	var total int64
	q := c.db.Model(&Vote{})
	if proposal != "" {
		q = q.Where("proposal = ?", proposal)
	}
	if voter != "" {
		q = q.Where("voter_address = ?", voter)
	}
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	offset, limit := pageArgs(page, pageSize)
	if err := q.Order("id asc").Offset(offset).Limit(limit).Find(&votes).Error; err != nil {
		return nil, 0, err
	}
	return votes, uint64(total), nil
}

// countVotes returns the yes and no ballots recorded for a proposal.
func (c *ChainIndexer) countVotes(proposal string) (yes, no uint64, err error) {
	var rows []struct {
		Choice bool
		Cnt    uint64
	}
	err = c.db.Model(&Vote{}).Select("choice, count(*) as cnt").
		Where("proposal = ?", proposal).Group("choice").Scan(&rows).Error
	if err != nil {
		return
	}
	for _, r := range rows {
		if r.Choice {
			yes = r.Cnt
		} else {
			no = r.Cnt
		}
	}
	return
}

func (c *ChainIndexer) countComments(proposal string) (uint64, error) {
	var cnt int64
	err := c.db.Model(&Comment{}).Where("proposal = ?", proposal).Count(&cnt).Error
	return uint64(cnt), err
}
