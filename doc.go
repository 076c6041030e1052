// Package taxlot reconstructs the ownership history of securities from a
// chronological transaction log, and derives what a tax return needs from it.
//
// The core functionalities include:
//   - Transaction Log: immutable, validated records of buys, sells,
//     dividends and corporate actions (see [Transaction]).
//   - Lot Ledger: replaying the log of one ticker into the lots still open
//     and the allocation of every sale (see [Replay]).
//   - Sale Resolver: matching a sale against open lots with FIFO, LIFO,
//     specific lot selection or average cost (see [Resolve]).
//   - Wash Sale Detector: flagging loss sales with a replacement purchase
//     within 30 days (see [DetectWashSales]).
//   - Tax Report: short and long term gains, dividends and wash sale flags
//     of a calendar year (see [Aggregate] and [Book.Report]).
//
// The engine is a pure function of its input: it does no I/O, keeps no state
// between calls and never logs. All arithmetic is decimal, values are rounded
// to cents only in final outputs.
//
// Ledgers are stored as JSONL files, one transaction per line. This package
// is the foundation of the `tlx` command-line tool.
package taxlot
