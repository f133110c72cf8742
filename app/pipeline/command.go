package pipeline

import (
	"github.com/umbraproject/umbrad/domain/consensus/model/externalapi"
)

// CommandKind identifies a pipeline command class.
type CommandKind uint8

// The command kinds the pipeline routes.
const (
	CmdSubmitBlock CommandKind = iota
	CmdGetTipInfo
	CmdGetBlockByHash
	CmdGetBlockByHeight
	CmdGetTransaction
	CmdGetUTXOEntry
	CmdHasNullifier
	CmdHasAnchor
)

var commandKindStrings = map[CommandKind]string{
	CmdSubmitBlock:      "SubmitBlock",
	CmdGetTipInfo:       "GetTipInfo",
	CmdGetBlockByHash:   "GetBlockByHash",
	CmdGetBlockByHeight: "GetBlockByHeight",
	CmdGetTransaction:   "GetTransaction",
	CmdGetUTXOEntry:     "GetUTXOEntry",
	CmdHasNullifier:     "HasNullifier",
	CmdHasAnchor:        "HasAnchor",
}

func (ck CommandKind) String() string {
	if name, ok := commandKindStrings[ck]; ok {
		return name
	}
	return "Unknown"
}

// Command is a request routed through the pipeline. Every command carries a
// buffered response channel; rejections travel back as response values,
// never as panics.
type Command interface {
	Kind() CommandKind
}

type submitBlockCommand struct {
	block    *externalapi.DomainBlock
	response chan *submitBlockResponse
}

type submitBlockResponse struct {
	tipInfo *externalapi.TipInfo
	err     error
}

func (c *submitBlockCommand) Kind() CommandKind { return CmdSubmitBlock }

type getTipInfoCommand struct {
	response chan *getTipInfoResponse
}

type getTipInfoResponse struct {
	tipInfo *externalapi.TipInfo
	err     error
}

func (c *getTipInfoCommand) Kind() CommandKind { return CmdGetTipInfo }

type getBlockByHashCommand struct {
	blockHash *externalapi.DomainHash
	response  chan *getBlockResponse
}

func (c *getBlockByHashCommand) Kind() CommandKind { return CmdGetBlockByHash }

type getBlockByHeightCommand struct {
	height   uint64
	response chan *getBlockResponse
}

func (c *getBlockByHeightCommand) Kind() CommandKind { return CmdGetBlockByHeight }

type getBlockResponse struct {
	block *externalapi.DomainBlock
	err   error
}

type getTransactionCommand struct {
	transactionID *externalapi.DomainTransactionID
	response      chan *getTransactionResponse
}

type getTransactionResponse struct {
	transaction *externalapi.DomainTransaction
	err         error
}

func (c *getTransactionCommand) Kind() CommandKind { return CmdGetTransaction }

type getUTXOEntryCommand struct {
	outpoint *externalapi.DomainOutpoint
	response chan *getUTXOEntryResponse
}

type getUTXOEntryResponse struct {
	entry *externalapi.UTXOEntry
	err   error
}

func (c *getUTXOEntryCommand) Kind() CommandKind { return CmdGetUTXOEntry }

type hasNullifierCommand struct {
	pool      externalapi.ShieldedPool
	nullifier *externalapi.DomainNullifier
	response  chan *existsResponse
}

func (c *hasNullifierCommand) Kind() CommandKind { return CmdHasNullifier }

type hasAnchorCommand struct {
	pool     externalapi.ShieldedPool
	anchor   *externalapi.DomainHash
	response chan *existsResponse
}

func (c *hasAnchorCommand) Kind() CommandKind { return CmdHasAnchor }

type existsResponse struct {
	exists bool
	err    error
}
