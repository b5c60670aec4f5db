package indexer

import (
	"context"
	"errors"
	"net/http"

	gov_types "github.com/calehh/gov-app/types"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type Service struct {
	engine     *gin.Engine
	indexer    *ChainIndexer
	listenAddr string
	srv        *http.Server
}

func NewService(listenAddr string, indexer *ChainIndexer) *Service {
	r := gin.Default()
	s := &Service{
		engine:     r,
		indexer:    indexer,
		listenAddr: listenAddr,
	}
	s.engine.POST("/getProposals", s.handleGetProposals)
	s.engine.POST("/getComments", s.handleGetComments)
	s.engine.POST("/getVotes", s.handleGetVotes)
	s.srv = &http.Server{Addr: listenAddr, Handler: r}
	return s
}

func (s *Service) Handler() http.Handler {
	return s.engine
}

// Start serves until Shutdown is called.
func (s *Service) Start() error {
	err := s.srv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Service) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

type ProposalInfo struct {
	Proposal   Proposal `json:"proposal"`
	CommentCnt uint64   `json:"commentCnt"`
	Yes        uint64   `json:"yes"`
	No         uint64   `json:"no"`
}

type GetProposalsReq struct {
	ProposalId string `json:"proposalId"`
	Author     string `json:"author"`
	Stage      string `json:"stage"`
	Page       int    `json:"page"`
	PageSize   int    `json:"pageSize"`
}

type GetProposalsResponse struct {
	Proposals []ProposalInfo `json:"proposals"`
	Total     uint64         `json:"total"`
}

func (s *Service) proposalInfo(p Proposal) (info ProposalInfo, err error) {
	info.Proposal = p
	if info.CommentCnt, err = s.indexer.countComments(p.Id); err != nil {
		return
	}
	info.Yes, info.No, err = s.indexer.countVotes(p.Id)
	return
}

func (s *Service) handleGetProposals(c *gin.Context) {
	var response GetProposalsResponse
	response.Proposals = make([]ProposalInfo, 0)
	var requestData GetProposalsReq
	if err := c.ShouldBindJSON(&requestData); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if requestData.ProposalId != "" {
		id, err := gov_types.ParseProposalID(requestData.ProposalId)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		proposal, err := s.indexer.getProposalById(id.Hex())
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "proposal not found"})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		info, err := s.proposalInfo(proposal)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		response.Proposals = append(response.Proposals, info)
		response.Total = 1
		c.JSON(http.StatusOK, response)
		return
	}

	proposals, total, err := s.indexer.getProposals(requestData.Author, requestData.Stage, requestData.Page, requestData.PageSize)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	response.Total = total
	for _, p := range proposals {
		info, err := s.proposalInfo(p)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		response.Proposals = append(response.Proposals, info)
	}
	c.JSON(http.StatusOK, response)
}

type GetCommentsReq struct {
	ProposalId string `json:"proposalId" binding:"required"`
	Page       int    `json:"page"`
	PageSize   int    `json:"pageSize"`
}

type GetCommentsResponse struct {
	Comments []Comment `json:"comments"`
	Total    uint64    `json:"total"`
}

func (s *Service) handleGetComments(c *gin.Context) {
	var response GetCommentsResponse
	response.Comments = make([]Comment, 0)
	var requestData GetCommentsReq
	if err := c.ShouldBindJSON(&requestData); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	id, err := gov_types.ParseProposalID(requestData.ProposalId)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	comments, total, err := s.indexer.getCommentsByProposal(id.Hex(), requestData.Page, requestData.PageSize)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	response.Comments = append(response.Comments, comments...)
	response.Total = total
	c.JSON(http.StatusOK, response)
}

type GetVotesReq struct {
	ProposalId string `json:"proposalId"`
	Voter      string `json:"voter"`
	Page       int    `json:"page"`
	PageSize   int    `json:"pageSize"`
}

type GetVotesResponse struct {
	Votes []Vote `json:"votes"`
	Total uint64 `json:"total"`
}

func (s *Service) handleGetVotes(c *gin.Context) {
	var response GetVotesResponse
	response.Votes = make([]Vote, 0)
	var requestData GetVotesReq
	if err := c.ShouldBindJSON(&requestData); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	var proposal string
	if requestData.ProposalId != "" {
		id, err := gov_types.ParseProposalID(requestData.ProposalId)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		proposal = id.Hex()
	}
	votes, total, err := s.indexer.getVotes(proposal, requestData.Voter, requestData.Page, requestData.PageSize)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	response.Votes = append(response.Votes, votes...)
	response.Total = total
	c.JSON(http.StatusOK, response)
}
