/*
Package version implements the version manager of §4.5: the 32-bit
timestamp issuer and the per-record visibility oracle that makes commits
visible to later readers in timestamp order.

Manager tracks outstanding read timestamps in a small sorted slice —
engine-internal read-transaction counts run to the tens or low hundreds
per session pool, so a sorted slice beats a heap on both constant factor
and readability. Insert timestamps publish through a FIFO ticket map so a
committed-but-not-yet-fully-applied earlier insert cannot let a later one
become visible out of order; update timestamps publish their overlay into
an OverlayStore immediately, independent of the insert watermark, exactly
as the ordering guarantees in §5 describe.
*/
package version
