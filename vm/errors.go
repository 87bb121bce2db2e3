package vm

// Most malformed-operand conditions (symbolic memory offsets, an
// out-of-range RETURNDATACOPY slice, a jump to a non-JUMPDEST) are not
// errors in the Go sense: they terminate the owning path silently, the
// same policy state.Stack's under/overflow sentinels already encode by
// returning no successors rather than propagating a failure up through
// the worklist. There is deliberately no sentinel-error set here to
// match; Step's error return is reserved for hook failures and anything
// that indicates a programming error rather than an EVM-level condition.
