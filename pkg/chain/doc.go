/*
Package chain implements the single-path model behind the workflow editor.

A workflow is a set of typed nodes plus directed edges that, by convention, form
one simple path starting at a trigger. This package orders that path for display
(Linearize), edits it while keeping it a path (Editor.Append, Editor.Remove) and
checks that stored data actually is a path (Validate).

Linearize is deliberately tolerant: branching, cycles and orphaned nodes never
make it fail, they only change where nodes end up in the sequence. Validate is
the strict counterpart used by the server before persisting.
*/
package chain
