package mcpserver

import "github.com/mark3labs/mcp-go/mcp"

// Tool definitions for the risk engine's MCP server. Descriptions are what
// the calling LLM reads to decide which tool to use and how to fill it in.

var ToolScoreTransaction = mcp.NewTool("score_transaction",
	mcp.WithDescription(
		"Score a transaction for fraud risk without publishing it to the stream. "+
			"Runs the same feature extraction and hybrid rule/logistic scorer used by "+
			"the live pipeline and returns a fraud probability, risk band, and whether "+
			"it crosses the configured fraud threshold."),
	mcp.WithString("transaction_id", mcp.Required(),
		mcp.Description("Caller-supplied unique identifier for this transaction")),
	mcp.WithString("user_id", mcp.Required(),
		mcp.Description("Identifier of the user initiating the transaction")),
	mcp.WithNumber("amount", mcp.Required(),
		mcp.Description("Transaction amount in the given currency")),
	mcp.WithString("currency",
		mcp.Description("ISO currency code, defaults to USD")),
	mcp.WithString("transaction_type", mcp.Required(),
		mcp.Description("One of payment, transfer, withdrawal, deposit, refund"),
		mcp.Enum("payment", "transfer", "withdrawal", "deposit", "refund")),
	mcp.WithString("merchant_id",
		mcp.Description("Merchant identifier, if this transaction involves one")),
	mcp.WithString("merchant_category",
		mcp.Description("Merchant category code or label")),
	mcp.WithString("ip_address",
		mcp.Description("Originating IP address")),
	mcp.WithString("device_id",
		mcp.Description("Originating device identifier")),
)

var ToolExplainTransaction = mcp.NewTool("explain_transaction",
	mcp.WithDescription(
		"Produce a human-readable explanation for a previously scored transaction: "+
			"a narrative, a ranked list of risk factors, and recommended next actions. "+
			"Call score_transaction first to get the probability, risk band, and feature "+
			"values this tool needs."),
	mcp.WithString("transaction_id", mcp.Required(),
		mcp.Description("The transaction_id from a previous score_transaction call")),
	mcp.WithNumber("probability", mcp.Required(),
		mcp.Description("Fraud probability returned by score_transaction, in [0,1]")),
	mcp.WithString("risk_band", mcp.Required(),
		mcp.Description("Risk band returned by score_transaction"),
		mcp.Enum("low", "medium", "high", "critical")),
	mcp.WithObject("features", mcp.Required(),
		mcp.Description("The feature map returned by score_transaction")),
)
