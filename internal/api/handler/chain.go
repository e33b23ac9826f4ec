package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/jmerrifield20/powchain/internal/chain"
	"github.com/jmerrifield20/powchain/internal/node"
	"go.uber.org/zap"
)

// ChainHandler exposes the ledger over HTTP.
type ChainHandler struct {
	node   *node.Node
	logger *zap.Logger
}

// NewChainHandler creates a new ChainHandler.
func NewChainHandler(n *node.Node, logger *zap.Logger) *ChainHandler {
	return &ChainHandler{node: n, logger: logger}
}

// Register mounts the chain routes on the given router group.
func (h *ChainHandler) Register(rg *gin.RouterGroup) {
	rg.GET("/chain", h.GetChain)
	rg.POST("/transaction", h.AddTransaction)

	c := rg.Group("/chain")
	{
		c.GET("/latest", h.Latest)
		c.GET("/verify", h.Verify)
		c.GET("/blocks/:idx", h.GetBlock)
	}
}

var errBadTransactionBody = errors.New(`body must be a JSON string or {"data": "..."}`)

// transactionRequest is the object form of the POST /transaction body.
type transactionRequest struct {
	Data string `json:"data"`
}

// GetChain handles GET /chain and returns every block in order.
func (h *ChainHandler) GetChain(c *gin.Context) {
	c.JSON(http.StatusOK, h.node.Blocks())
}

// AddTransaction handles POST /transaction. The body is either a JSON string
// or an object with a "data" field. The block is mined before responding.
func (h *ChainHandler) AddTransaction(c *gin.Context) {
	data, err := parseTransaction(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	block, err := h.node.Submit(c.Request.Context(), data)
	if err != nil {
		h.logger.Error("submit transaction", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to append block"})
		return
	}

	h.logger.Info("transaction added",
		zap.Uint64("index", block.Index),
		zap.String("hash", block.Hash),
		zap.Uint64("nonce", block.Nonce),
	)
	c.JSON(http.StatusOK, gin.H{
		"message": "Transaction added",
		"block":   block,
	})
}

func parseTransaction(c *gin.Context) (string, error) {
	raw, err := c.GetRawData()
	if err != nil {
		return "", errors.New("could not read request body")
	}

	var data string
	trimmed := strings.TrimSpace(string(raw))
	switch {
	case strings.HasPrefix(trimmed, `"`):
		if err := json.Unmarshal(raw, &data); err != nil {
			return "", errBadTransactionBody
		}
	case strings.HasPrefix(trimmed, "{"):
		var req transactionRequest
		if err := json.Unmarshal(raw, &req); err != nil {
			return "", errBadTransactionBody
		}
		data = req.Data
	default:
		return "", errBadTransactionBody
	}

	if data == "" {
		return "", errors.New("transaction data is required")
	}
	return data, nil
}

// Latest handles GET /chain/latest and returns the tail block.
func (h *ChainHandler) Latest(c *gin.Context) {
	block, err := h.node.Latest()
	if err != nil {
		h.logger.Error("ledger Latest", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to query ledger tail"})
		return
	}
	c.JSON(http.StatusOK, block)
}

// Verify handles GET /chain/verify and reports both the ledger's link check and
// the strict proof-of-work audit.
func (h *ChainHandler) Verify(c *gin.Context) {
	report := h.node.Verify()
	if !report.Valid || !report.PoWValid {
		h.logger.Warn("chain integrity check failed",
			zap.Bool("valid", report.Valid),
			zap.Bool("pow_valid", report.PoWValid),
			zap.Int("violations", len(report.Violations)),
		)
	}
	c.JSON(http.StatusOK, report)
}

// GetBlock handles GET /chain/blocks/:idx and returns a single block.
func (h *ChainHandler) GetBlock(c *gin.Context) {
	idx, err := strconv.Atoi(c.Param("idx"))
	if err != nil || idx < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "idx must be a non-negative integer"})
		return
	}

	block, err := h.node.Block(idx)
	if err != nil {
		if errors.Is(err, chain.ErrBlockNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "block not found"})
			return
		}
		h.logger.Error("ledger Block", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to query ledger"})
		return
	}
	c.JSON(http.StatusOK, block)
}
