/*
Package core contains the approval and versioning workflow engine. It defines
database interfaces (DecisionDB, RuleDB, ManualDB, NotificationDB), domain
types (Manual, Version, Decision, ApprovalRule, Summary) and the glue between
them.

Decisions

Decisions are an append-only log. Each approver may decide any number of
times on the same version; every decision gets the next per-approver sequence
number and nothing is ever updated in place. The current approval status of a
version is always derived from the log and the manual's rule, never stored.

Derivation

Only the latest decision per approver counts. A version is approved when the
number of latest approvals reaches the manual's required count (a manual
without a rule requires zero, so its versions are trivially approved),
rejected when any approver's latest decision is a rejection, and pending
otherwise. Since a rejecting approver contributes nothing to the tally, a
rejection blocks a previously met threshold until that approver flips. No
status is terminal.
*/
package core
