// Package units parses and formats the dimensioned strings the content
// corpus embeds in numeric fields: mass ("1 kg"), volume ("1 L"), and
// duration ("+1 day -23 hours 50m"). Inheritance modifiers in pkg/inherit
// operate on the parsed numeric value and must re-render it in the same
// unit family the source record used.
package units
