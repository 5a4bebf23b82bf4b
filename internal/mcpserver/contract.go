package mcpserver

// DatasetSchema describes the layout of a generated dataset for LLM
// consumers that browse it through this server.
const DatasetSchema = `# Orgsynth Dataset Schema

A dataset is a synthetic organisation: teams, people, documents,
conversations and activity over a fixed date range, plus a knowledge graph
built from them. Everything is read-only and reproducible from its seed.

## Entities

Every entity is addressed as ` + "`TYPE:id`" + ` (e.g. ` + "`DOC:D_0001`" + `, ` + "`PERSON:P_001`" + `).
Types are case-insensitive in tool arguments.

| Type    | Meaning                                              |
|---------|------------------------------------------------------|
| TEAM    | Organisational unit; id is the team name             |
| PERSON  | Employee with role, seniority, team and manager      |
| TOPIC   | Business topic with aliases, optionally team-owned   |
| DOC     | Markdown document; versions chain via previous_version_id |
| THREAD  | Chat channel thread with participants and topic tags |
| MESSAGE | Chat message in a thread, with mentions and doc refs |
| MEETING | Meeting with attendees, agenda and linked documents  |
| ACL     | Access rules on a document                           |
| EVENT   | Activity event (view, edit, comment, share)          |
| METRIC  | Monthly team metric                                  |
| PACK    | Onboarding pack of documents and contacts per team   |

## Knowledge graph

Edges connect two entities with a weight in [0, 1] and evidence refs.
Types: VIEWED, AUTHORED, MENTIONED, CO_OCCURS_WITH, SIMILAR_TOPIC,
TEAM_OVERLAP, REPLACES, VERSION_OF, ASKED_ABOUT, WORKED_WITH.

Overlaps pair two teams working on the same topic, with a confidence,
evidence, suggested people and a suggested action. Mandatory overlaps are
always present even when organic evidence is weak.

## Tools

- ` + "`search_entities`" + `: full-text search over titles and bodies.
- ` + "`get_entity`" + `: one record with its strongest neighbours.
- ` + "`get_neighbors`" + `: entities connected to a node, heaviest edge first.
- ` + "`list_overlaps`" + `: cross-team overlaps, optionally for one team.
- ` + "`read_document`" + `: the Markdown source of a document.
- ` + "`get_report`" + `: the run report (seed, counts, issues, checksum).

## Issues

The report lists validation findings. Severity is ERROR or WARNING; kind is
one of FORMAT, REFERENCE, TEMPORAL, SEMANTIC or INTEGRITY. Records that could
not be repaired were dropped and are absent from the dataset.
`
